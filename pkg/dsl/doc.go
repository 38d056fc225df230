/*
Package dsl provides a fluent builder for flat automation graphs.

It produces the same node records the compiler emits for editor graphs, which
makes it the shortest way to declare graphs in tests, examples and generated
scripts.

Example usage:

	nodes := dsl.New().
		Add("1", domain.KindStart).Then("2").
		Add("2", domain.KindFindImage).Prop("template", "ok.png").Found("3").NotFound("4").
		Add("3", domain.KindClick).Input("X", "2", 2).Input("Y", "2", 3).
		Add("4", domain.KindDiscordSend).Prop("message", "button missing").
		Build()
*/
package dsl
