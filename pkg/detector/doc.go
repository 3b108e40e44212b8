// Package detector decides, once per iteration, whether the item on display
// should be captured, skipped, or whether traversal has looped.
//
// Three signals are combined, in order:
//
//  1. Start key: the weak key of the first item reappears after at least one
//     capture. The viewer wrapped around.
//  2. Unchanged item: the strong key has not changed for Threshold
//     consecutive iterations. Advancing no longer changes the display.
//  3. Seen set: the strong key was already captured. The item is skipped.
//
// Anything else is novel. Replaying the same identity sequence into a fresh
// State always yields the same verdicts.
package detector
