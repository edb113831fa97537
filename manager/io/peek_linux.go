package io

import "golang.org/x/sys/unix"

// inqRequest is FIONREAD under its linux name.
const inqRequest = unix.TIOCINQ
