/*
Package domain contains the core domain models of the bbscript graph engine.

It defines the flat node records produced by the compiler, the fixed set of node
kinds, the run lifecycle (status, events, hooks) and the tagged command actions
used to bridge external commands into a running graph. This package is kept pure
and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Node: one executable step with a kind, a property bag, input bindings and
    successor references (next, found/not-found or body/exit).
  - Kind: the node kind tag; namespaced forms such as "bot/click" normalize to "click".
  - CommandAction: what a command name does when dispatched (signal a suspended
    wait node or start a walk at a slash-command node).
  - RunInfo: the externally visible snapshot of a top-level run.
*/
package domain
