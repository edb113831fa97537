package io

// inqRequest is FIONREAD, _IOR('f', 127, int); x/sys does not export it
// for darwin.
const inqRequest = 0x4004667f
