package debug

// DEBUG toggles chunk disassembly after compilation and per-instruction
// tracing in the VM. The branches it guards compile away when false.
const DEBUG = false
