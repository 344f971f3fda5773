package audio

import (
	"errors"
	"testing"
	"time"
)

func TestPipeReadPadsWithSilence(t *testing.T) {
	p := newPipe(8)
	p.SetRunning(true)
	if _, err := p.Write([]float32{1, 2, 3}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	dst := []float32{9, 9, 9, 9, 9}
	if got := p.Read(dst); got != 3 {
		t.Fatalf("Read = %d, want 3", got)
	}
	want := []float32{1, 2, 3, 0, 0}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestPipeWrapsAround(t *testing.T) {
	p := newPipe(4)
	p.SetRunning(true)
	dst := make([]float32, 3)

	p.Write([]float32{1, 2, 3})
	p.Read(dst)
	p.Write([]float32{4, 5, 6})
	if got := p.Read(dst); got != 3 {
		t.Fatalf("Read = %d, want 3", got)
	}
	for i, want := range []float32{4, 5, 6} {
		if dst[i] != want {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want)
		}
	}
}

func TestPipeWriteBlocksUntilRead(t *testing.T) {
	p := newPipe(4)
	p.SetRunning(true)

	done := make(chan struct{})
	go func() {
		p.Write(make([]float32, 10))
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Write returned before the reader drained the pipe")
	case <-time.After(20 * time.Millisecond):
	}

	dst := make([]float32, 4)
	deadline := time.After(2 * time.Second)
	for {
		p.Read(dst)
		select {
		case <-done:
			return
		case <-deadline:
			t.Fatal("Write still blocked after draining")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestPipeDiscardsWhileStopped(t *testing.T) {
	p := newPipe(4)
	n, err := p.Write(make([]float32, 100))
	if err != nil || n != 100 {
		t.Fatalf("Write = %d, %v; want 100, nil", n, err)
	}
	if p.Buffered() != 0 {
		t.Errorf("Buffered = %d, want 0", p.Buffered())
	}
}

func TestPipeCloseUnblocksWriter(t *testing.T) {
	p := newPipe(2)
	p.SetRunning(true)

	errc := make(chan error, 1)
	go func() {
		_, err := p.Write(make([]float32, 10))
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)
	p.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrStreamClosed) {
			t.Errorf("err = %v, want ErrStreamClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not unblock Write")
	}
}

func TestPipeVolumeAndFlush(t *testing.T) {
	p := newPipe(8)
	p.SetRunning(true)
	p.SetVolume(0.25)
	p.Write([]float32{1, 1})

	dst := make([]float32, 1)
	p.Read(dst)
	if dst[0] != 0.25 {
		t.Errorf("scaled sample = %v, want 0.25", dst[0])
	}

	p.Flush()
	if p.Buffered() != 0 {
		t.Errorf("Buffered after Flush = %d, want 0", p.Buffered())
	}
}
