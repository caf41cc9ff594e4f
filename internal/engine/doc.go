// Package engine elaborates hardware construction bodies by replaying them.
//
// A construction body is ordinary Go code that declares ports, assigns
// signals and makes decisions on signal values through a *Ctx. Because the
// values are not known at construction time, the engine cannot pick one side
// of a decision. Instead it runs the body once per combination it still has
// to see and merges the recorded traces into a single behavior tree.
//
// ARCHITECTURE:
//
// Replay Loop (Controller):
// 1. Controller.Elaborate starts an invocation (Recorder.OnEnterConstruction)
// 2. The body runs from scratch; every decision asks the Recorder for its outcome
// 3. Decisions on the locked path replay their recorded outcome
// 4. The first unexplored decision takes its next outcome
// 5. OnConstructionExit advances or merges scopes; the loop ends when the
//    root scope merges and the tree is frozen
//
// Merge (Recorder):
// Each open decision keeps the trace of the invocation that opened it (its
// reference trace). A later outcome that reaches an event of that trace has
// rejoined shared code; the rest of the invocation replays the reference
// and the shared events are recorded once, after the decision node.
//
// CRITICAL PATTERNS:
//
// Stable Site Identity
// A decision site must keep its kind and value domain across invocations.
// Sites come from the call stack plus a per-invocation occurrence count.
//
// Bounded Replay
// Invocations per module and events per invocation are both bounded; a body
// that keeps opening decisions fails with NON_DETERMINISTIC_CONSTRUCTION.
//
// Single Driver per Path
// Every invocation checks assignments against a fresh driver table, and the
// frozen tree is validated once more over every path (driver.Validate).
package engine
