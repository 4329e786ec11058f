package utils

import (
	"strings"
	"sync"
	"testing"
)

const (
	// producer Concurrent
	ProducerConcurrent = 100
	// Total generate number
	ProducerGenTotal = 10000
)

func TestFileIsExist(t *testing.T) {
	dir := t.TempDir()
	if !FileIsExist(dir) {
		t.Errorf("temp dir should exist")
	}
	if FileIsExist(dir + "/no/such/file") {
		t.Errorf("missing file reported as existing")
	}
}

// 用来验证logId生成算法的冲突率
func TestGenLogId(t *testing.T) {
	ch := make(chan string, ProducerGenTotal)
	wg := &sync.WaitGroup{}
	ctl := make(chan struct{}, ProducerConcurrent)
	for i := 0; i < ProducerGenTotal; i++ {
		wg.Add(1)
		ctl <- struct{}{}
		go func() {
			defer wg.Done()
			ch <- GenLogId()
			<-ctl
		}()
	}
	wg.Wait()
	close(ch)

	seen := make(map[string]struct{}, ProducerGenTotal)
	repeat := 0
	for id := range ch {
		if _, ok := seen[id]; ok {
			repeat++
		}
		seen[id] = struct{}{}
	}
	if repeat > ProducerGenTotal/1000 {
		t.Errorf("too many repeated log ids. total:%d repeat:%d", ProducerGenTotal, repeat)
	}
}

func TestGetFuncCall(t *testing.T) {
	fline, fn := GetFuncCall(1)
	if !strings.HasPrefix(fline, "utils_test.go:") {
		t.Errorf("unexpected caller file %s", fline)
	}
	if !strings.Contains(fn, "TestGetFuncCall") {
		t.Errorf("unexpected caller func %s", fn)
	}
}
