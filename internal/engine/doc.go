// Package engine implements the ability run queue and suspension controller.
//
// A System instantiates abilities from graph descriptions, queues run
// requests and drives one flow.Interpreter at a time.
//
// ARCHITECTURE:
//
// Single Active Run:
// Runs are served strictly FIFO. Node effects that trigger further runs
// (ability.run, events raised by combat.damage or event.emit) append to the
// same queue; the triggered runs start only after the active run ends or
// parks, so chain effects commit in the order they were triggered no matter
// how deep in macro frames the trigger happened.
//
// Suspension:
// A node that needs a player choice parks the run. The system notifies
// OnChoice observers and stops advancing the queue. Resume applies the
// answer to the same interpreter and the queue moves on once that run ends.
// There is no timeout: a parked run waits until resumed.
//
// Defects:
// Nothing a graph does is fatal to the system. Structural defects from the
// factory and evaluation defects from runs are logged, collected and
// mirrored to the Recorder.
//
// Logical Clock:
// Trace entries and run records carry seq values from Clock.Next, never
// wall-clock time, so identical inputs give identical traces.
package engine
