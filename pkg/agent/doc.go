// Package agent runs the goal-driven action loop.
//
// An [Agent] repeatedly asks its [Language] for a prompt built from its
// goals, the run's memory and the available actions, sends the prompt to a
// [genx.Generator], parses the model's reply into an [Invocation] and
// executes the chosen action through an [environment.Environment]:
//
//	user input -> prompt -> model -> {tool, args} -> action -> result
//	                ^                                              |
//	                +-------------------- memory <-----------------+
//
// A run ends when a terminal action executes, when the model names a tool the
// agent does not have, when generation fails, or when the iteration budget is
// spent. Replies that are not a tool call are treated as a call to terminate
// with the reply as the message, so a plain-text answer ends the run.
package agent
