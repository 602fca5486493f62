// Package io provides the console devices of the csim machine.
//
// Devices are attached to the CPU's device slots. An IN instruction polls an
// Input, and an OUT instruction hands a word to an Output.
package io

// Device is anything that can be attached to a device slot.
type Device interface {
	// Rewind resets the device to its initial state.
	Rewind()
}

// Input is a device that supplies words to the IN instruction.
type Input interface {
	Device
	// Poll returns the next word, or ok false if none is available yet.
	// Poll never blocks.
	Poll() (value uint16, ok bool)
}

// Output is a device that consumes words from the OUT instruction.
type Output interface {
	Device
	// Print consumes a single word.
	Print(value uint16)
}
