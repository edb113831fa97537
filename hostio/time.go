package hostio

import (
	"math/big"
	"time"
)

var microsPerSecond = big.NewInt(1_000_000)

// TimeToMicros converts t to microseconds since the Unix epoch.
func TimeToMicros(t time.Time) *big.Int {
	us := new(big.Int).Mul(big.NewInt(t.Unix()), microsPerSecond)
	return us.Add(us, big.NewInt(int64(t.Nanosecond()/1000)))
}

// MicrosToTime is the inverse of TimeToMicros. Values beyond the range of
// time.Time saturate.
func MicrosToTime(us *big.Int) time.Time {
	if us == nil {
		return time.Unix(0, 0)
	}
	sec, rem := new(big.Int).QuoRem(us, microsPerSecond, new(big.Int))
	if rem.Sign() < 0 {
		sec.Sub(sec, big.NewInt(1))
		rem.Add(rem, microsPerSecond)
	}
	if !sec.IsInt64() {
		if sec.Sign() < 0 {
			return time.Unix(-1<<62, 0)
		}
		return time.Unix(1<<62, 0)
	}
	return time.Unix(sec.Int64(), rem.Int64()*1000)
}
