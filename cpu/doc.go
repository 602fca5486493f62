// Package cpu implements the processor and assembler for the csim teaching machine.
//
// The machine has a 12-bit program counter (PC), a 16-bit instruction register
// (IR), memory address and buffer registers (MAR, MBR), a 4-bit condition code
// (CC), a 4-bit machine fault register (MFR), four 16-bit general purpose
// registers (R0-R3) and three 16-bit index registers (X1-X3). Every memory
// access made by the processor goes through a Bus, normally the cache.
//
// The assembler is a two pass assembler: the first pass binds labels to
// addresses, the second emits one 16-bit word per instruction or DATA line,
// producing a listing and a load image.
package cpu
