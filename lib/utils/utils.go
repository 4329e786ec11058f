package utils

import (
	"fmt"
	"os"
	"path"
	"runtime"
	"strconv"
	"sync"
	"time"

	"pgregory.net/rand"
)

var (
	idRandMu sync.Mutex
	idRand   = rand.New()
)

// FileIsExist reports whether the named file or directory exists.
func FileIsExist(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}

	return true
}

// GenPseudoUniqId mixes the clock with two random draws. Not strictly
// unique, but collisions are rare enough for log correlation.
func GenPseudoUniqId() uint64 {
	nano := time.Now().UnixNano()

	idRandMu.Lock()
	randNum1 := idRand.Uint64() >> 1
	randNum2 := idRand.Uint64() >> 1
	shift1 := idRand.Intn(16) + 2
	shift2 := idRand.Intn(8) + 1
	idRandMu.Unlock()

	uId := ((randNum1 >> uint(shift1)) + (randNum2 >> uint(shift2)) + uint64(nano>>1)) &
		0x1FFFFFFFFFFFFF
	return uId
}

// GenLogId tags one unit of work (a block, a message) in the logs.
func GenLogId() string {
	return fmt.Sprintf("%d_%d", time.Now().Unix(), GenPseudoUniqId())
}

// GetFuncCall returns "file:line" and the function name of a caller.
func GetFuncCall(callDepth int) (string, string) {
	pc, file, line, ok := runtime.Caller(callDepth)
	if !ok {
		return "???:0", "???"
	}

	f := runtime.FuncForPC(pc)
	_, function := path.Split(f.Name())
	_, filename := path.Split(file)

	fline := filename + ":" + strconv.Itoa(line)
	return fline, function
}
