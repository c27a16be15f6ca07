package io

// Keys is a keypad driven by the host: keys are held with Press and
// let go with Release. A Script of key masks, if present, overrides the
// held keys for one poll per entry.
type Keys struct {
	Held   uint16   // Keys currently held down.
	Script []uint16 // Pending scripted key masks.
}

var _ Keypad = (*Keys)(nil)

// Press holds down a key.
func (kc *Keys) Press(key uint8) {
	kc.Held |= 1 << (key & 0xf)
}

// Release lets go of a key.
func (kc *Keys) Release(key uint8) {
	kc.Held &^= 1 << (key & 0xf)
}

// Queue appends key masks to the script.
func (kc *Keys) Queue(masks ...uint16) {
	kc.Script = append(kc.Script, masks...)
}

// Reset releases all keys and drops the script.
func (kc *Keys) Reset() {
	kc.Held = 0
	kc.Script = nil
}

// Poll returns the next scripted mask, or the held keys once the script
// is exhausted.
func (kc *Keys) Poll() (mask uint16) {
	if len(kc.Script) > 0 {
		mask = kc.Script[0]
		kc.Script = kc.Script[1:]
		return
	}

	return kc.Held
}
