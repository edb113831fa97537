package hostio

import "fmt"

// Op is a dispatch operation code. The numbering is a fixed contract with
// the runtime's library code.
type Op int

const (
	OpStdin            Op = 0
	OpStdout           Op = 1
	OpStderr           Op = 2
	OpOpenTextIn       Op = 3
	OpOpenBinaryIn     Op = 4
	OpOpenTextOut      Op = 5
	OpOpenBinaryOut    Op = 6
	OpClose            Op = 7
	OpReadText         Op = 8
	OpReadBinary       Op = 9
	OpReadTextString   Op = 10
	OpWriteText        Op = 11
	OpWriteBinary      Op = 12
	OpOpenTextAppend   Op = 13
	OpOpenBinaryAppend Op = 14
	OpBufferSize       Op = 15
	OpIsAvailable      Op = 16
	OpSizeRemaining    Op = 17
	OpGetPos           Op = 18
	OpSetPos           Op = 19
	OpEndPos           Op = 20
	OpKind             Op = 21
	OpPollCapability   Op = 22
	OpPollForever      Op = 23
	OpPollUntil        Op = 24
	OpPollOnce         Op = 25
	OpReadBinaryVector Op = 26
	OpWaitAvailable    Op = 27
	OpCanOutput        Op = 28
	OpWaitOutput       Op = 29
	OpDescriptorID     Op = 30
	OpOpenDir          Op = 50
	OpReadDir          Op = 51
	OpCloseDir         Op = 52
	OpRewindDir        Op = 53
	OpGetwd            Op = 54
	OpMkdir            Op = 55
	OpRmdir            Op = 56
	OpIsDir            Op = 57
	OpIsSymlink        Op = 58
	OpReadLink         Op = 59
	OpFullPath         Op = 60
	OpModTime          Op = 61
	OpFileSize         Op = 62
	OpSetTime          Op = 63
	OpRemove           Op = 64
	OpRename           Op = 65
	OpAccess           Op = 66
	OpTempName         Op = 67
	OpFileID           Op = 68
	OpStreamID         Op = 69
)

var opNames = map[Op]string{
	OpStdin:            "stdin",
	OpStdout:           "stdout",
	OpStderr:           "stderr",
	OpOpenTextIn:       "open-text-in",
	OpOpenBinaryIn:     "open-binary-in",
	OpOpenTextOut:      "open-text-out",
	OpOpenBinaryOut:    "open-binary-out",
	OpClose:            "close",
	OpReadText:         "read-text",
	OpReadBinary:       "read-binary",
	OpReadTextString:   "read-text-string",
	OpWriteText:        "write-text",
	OpWriteBinary:      "write-binary",
	OpOpenTextAppend:   "open-text-append",
	OpOpenBinaryAppend: "open-binary-append",
	OpBufferSize:       "buffer-size",
	OpIsAvailable:      "is-available",
	OpSizeRemaining:    "size-remaining",
	OpGetPos:           "get-pos",
	OpSetPos:           "set-pos",
	OpEndPos:           "end-pos",
	OpKind:             "kind",
	OpPollCapability:   "poll-capability",
	OpPollForever:      "poll-forever",
	OpPollUntil:        "poll-until",
	OpPollOnce:         "poll-once",
	OpReadBinaryVector: "read-binary-vector",
	OpWaitAvailable:    "wait-available",
	OpCanOutput:        "can-output",
	OpWaitOutput:       "wait-output",
	OpDescriptorID:     "descriptor-id",
	OpOpenDir:          "open-dir",
	OpReadDir:          "read-dir",
	OpCloseDir:         "close-dir",
	OpRewindDir:        "rewind-dir",
	OpGetwd:            "getwd",
	OpMkdir:            "mkdir",
	OpRmdir:            "rmdir",
	OpIsDir:            "is-dir",
	OpIsSymlink:        "is-symlink",
	OpReadLink:         "read-link",
	OpFullPath:         "full-path",
	OpModTime:          "mod-time",
	OpFileSize:         "file-size",
	OpSetTime:          "set-time",
	OpRemove:           "remove",
	OpRename:           "rename",
	OpAccess:           "access",
	OpTempName:         "temp-name",
	OpFileID:           "file-id",
	OpStreamID:         "stream-id",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", int(o))
}
