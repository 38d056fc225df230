/*
Package ports defines the driven ports (interfaces) of the bbscript engine.

These interfaces decouple the graph engine from the collaborators it drives, so the
same engine can run against an adb-connected emulator, a test double or any other
device, and report to Discord, MQTT or nothing at all.

# Key Interfaces

  - Device: taps, swipes, key events, screenshots and pixel sampling.
  - Recognizer: locates a template image on the current screen.
  - Messenger: delivers direct messages; each send returns a future.
  - CommandDispatcher: routes an external command into the running script.
  - ScriptStore: loads and persists raw graph descriptions by name.
  - DistributedLocker: leases the device across processes.
*/
package ports
