package components

// defaultConnectionCapacity is the per-bank buffer depth components request
// when connecting to a peer whose own protocol needs no more than one
// request in flight at a time. ringbuffer.Buffer panics on a non-positive
// capacity, so this is the floor every Connect call in this package uses.
const defaultConnectionCapacity = 4
