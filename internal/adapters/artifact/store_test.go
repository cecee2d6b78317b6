package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestResolve(t *testing.T) {
	Convey("Given a store", t, func() {
		s, err := NewStore(t.TempDir())
		So(err, ShouldBeNil)

		Convey("bare names resolve inside the directory", func() {
			p, err := s.Resolve("song_Synth_44100hz.wav")
			So(err, ShouldBeNil)
			So(p, ShouldEqual, filepath.Join(s.Dir(), "song_Synth_44100hz.wav"))
		})

		Convey("traversal and hidden names are rejected", func() {
			for _, name := range []string{"", "../etc/passwd", "a/b.wav", `a\b.wav`, "..", ".locks", ".hidden.wav", "x..wav"} {
				_, err := s.Resolve(name)
				So(errors.Is(err, ErrInvalidName), ShouldBeTrue)
			}
		})
	})
}

func TestPersistAndOpen(t *testing.T) {
	Convey("Given a store in a nested directory that does not exist yet", t, func() {
		dir := filepath.Join(t.TempDir(), "output", "renders")
		s, err := NewStore(dir)
		So(err, ShouldBeNil)

		Convey("persisted data can be opened and listed", func() {
			path, err := s.Persist("a.wav", []byte("first"))
			So(err, ShouldBeNil)
			So(path, ShouldEqual, filepath.Join(dir, "a.wav"))

			f, info, err := s.Open("a.wav")
			So(err, ShouldBeNil)
			defer f.Close()
			body, _ := io.ReadAll(f)
			So(string(body), ShouldEqual, "first")
			So(info.Size(), ShouldEqual, int64(5))

			names, err := s.List()
			So(err, ShouldBeNil)
			So(names, ShouldResemble, []string{"a.wav"})
		})

		Convey("persisting the same name overwrites it", func() {
			_, err := s.Persist("a.wav", []byte("first"))
			So(err, ShouldBeNil)
			_, err = s.Persist("a.wav", []byte("second!"))
			So(err, ShouldBeNil)
			data, err := os.ReadFile(filepath.Join(dir, "a.wav"))
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "second!")
		})

		Convey("missing artifacts are not found", func() {
			_, _, err := s.Open("missing.wav")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("invalid names are not written", func() {
			_, err := s.Persist("../escape.wav", []byte("x"))
			So(errors.Is(err, ErrInvalidName), ShouldBeTrue)
		})
	})
}

func TestConcurrentPersistSameName(t *testing.T) {
	Convey("Concurrent writers of one name leave exactly one complete payload", t, func() {
		s, err := NewStore(t.TempDir())
		So(err, ShouldBeNil)

		payloads := make([][]byte, 8)
		for i := range payloads {
			payloads[i] = bytes.Repeat([]byte(fmt.Sprint(i)), 64*1024)
		}

		var wg sync.WaitGroup
		errs := make(chan error, len(payloads))
		for _, p := range payloads {
			wg.Add(1)
			go func(p []byte) {
				defer wg.Done()
				_, err := s.Persist("same.wav", p)
				errs <- err
			}(p)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			So(err, ShouldBeNil)
		}

		data, err := os.ReadFile(filepath.Join(s.Dir(), "same.wav"))
		So(err, ShouldBeNil)
		matched := false
		for _, p := range payloads {
			if bytes.Equal(data, p) {
				matched = true
			}
		}
		So(matched, ShouldBeTrue)

		names, err := s.List()
		So(err, ShouldBeNil)
		So(names, ShouldResemble, []string{"same.wav"})
	})
}
