// package upload models the merge upload lifecycle as a pure state machine.
//
// Transitions never perform I/O. Each returns the next [Machine] and the [Effect] values the caller must carry out
// (send the request, save the result, log, report, clear the file list). Responses are tagged with the attempt number
// they belong to so late events from a cancelled request are dropped.
package upload
