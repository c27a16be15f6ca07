// Package cpu implements the interpreter and assembler for the CHIP-8 machine.
//
// The interpreter consists of a program counter, sixteen 8-bit registers
// (v0-vf, with vf doubling as the carry, borrow and collision flag), a 12-bit
// index register, a call stack, the delay and sound timers, and a 64x32
// monochrome framebuffer. Each Step fetches one two-byte instruction, advances
// the program counter past it, then executes it.
//
// The assembler accepts the customary CHIP-8 mnemonics, and supports macros,
// labels, equates, and compile-time expression evaluation.
package cpu
