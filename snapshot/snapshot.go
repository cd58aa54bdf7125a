// Package snapshot saves and restores a processor, including an
// instruction in flight, to a directory.
//
// A snapshot directory holds two files: STATE_FILE, the execution state
// as YAML, and MEMORY_FILE, the raw memory image.
package snapshot

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ezrec/tickcpu/cpu"
)

const (
	STATE_FILE  = "state.yaml" // Execution state.
	MEMORY_FILE = "memory.bin" // Memory image.
	SUFFIX      = ".snap"      // Suffix of named snapshot directories.
)

var nameRegexp = regexp.MustCompile(`(?i)^[0-9a-f]{16}\.snap$`)

// Snapshot is a processor's state and its memory.
type Snapshot struct {
	State  cpu.State
	Memory *cpu.Memory
}

// Name returns the directory name of a snapshot, ordered by cycle count.
func (snap *Snapshot) Name() string {
	return fmt.Sprintf("%016x%s", snap.State.Cycles, SUFFIX)
}

// Marshal writes the snapshot files to a file system.
func (snap *Snapshot) Marshal(filesys CreateFS) (err error) {
	err = create(filesys, STATE_FILE, func(w io.Writer) (err error) {
		enc := yaml.NewEncoder(w)
		err = enc.Encode(&snap.State)
		if err != nil {
			return
		}
		err = enc.Close()
		return
	})
	if err != nil {
		return
	}

	err = create(filesys, MEMORY_FILE, func(w io.Writer) (err error) {
		_, err = w.Write(snap.Memory[:])
		return
	})

	return
}

// Unmarshal reads the snapshot files from a file system. The restored state
// is validated as a resume point.
func (snap *Snapshot) Unmarshal(filesys fs.FS) (err error) {
	var state cpu.State

	err = open(filesys, STATE_FILE, func(r io.Reader) (err error) {
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		err = dec.Decode(&state)
		return
	})
	if err != nil {
		return
	}

	err = state.Validate()
	if err != nil {
		err = &ErrFile{Name: STATE_FILE, Err: err}
		return
	}

	mem := cpu.NewMemory(cpu.MEMORY_FILL)
	err = open(filesys, MEMORY_FILE, func(r io.Reader) (err error) {
		n, err := mem.Load(r)
		if err != nil {
			return
		}
		if n != cpu.MEMORY_SIZE {
			return ErrMemorySize
		}
		var extra [1]byte
		n, err = io.ReadFull(r, extra[:])
		if n != 0 {
			return ErrMemorySize
		}
		if err == io.EOF {
			err = nil
		}
		return
	})
	if err != nil {
		return
	}

	snap.State = state
	snap.Memory = mem

	return
}

// Save writes the snapshot to its named subdirectory, creating the
// subdirectory if needed.
func (snap *Snapshot) Save(filesys CreateFS) (name string, err error) {
	name = snap.Name()

	subsys, err := filesys.Sub(name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return
		}
		err = filesys.Mkdir(name, 0755)
		if err != nil {
			return
		}
		subsys, err = filesys.Sub(name)
		if err != nil {
			return
		}
	}

	err = snap.Marshal(subsys)

	return
}

// Load reads a snapshot from a named subdirectory.
func Load(filesys fs.FS, name string) (snap *Snapshot, err error) {
	subsys, err := fs.Sub(filesys, name)
	if err != nil {
		return
	}

	snap = &Snapshot{}
	err = snap.Unmarshal(subsys)
	if err != nil {
		snap = nil
	}

	return
}

// List returns the names of the snapshot subdirectories, oldest first.
func List(filesys fs.FS) (names []string, err error) {
	entries, err := fs.ReadDir(filesys, ".")
	if err != nil {
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() || !nameRegexp.MatchString(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}

	slices.SortFunc(names, func(a, b string) int {
		return cmp.Compare(cyclesOf(a), cyclesOf(b))
	})

	return
}

// Latest loads the snapshot with the highest cycle count.
func Latest(filesys fs.FS) (snap *Snapshot, err error) {
	names, err := List(filesys)
	if err != nil {
		return
	}

	if len(names) == 0 {
		err = ErrNoSnapshot
		return
	}

	snap, err = Load(filesys, names[len(names)-1])

	return
}

// cyclesOf returns the cycle count of a snapshot name.
func cyclesOf(name string) (cycles uint64) {
	cycles, _ = strconv.ParseUint(strings.TrimSuffix(strings.ToLower(name), SUFFIX), 16, 64)
	return
}

func create(filesys CreateFS, name string, marshal func(w io.Writer) error) (err error) {
	file, err := filesys.Create(name)
	if err != nil {
		return
	}

	err = marshal(file)
	err = errors.Join(err, file.Close())
	if err != nil {
		err = &ErrFile{Name: name, Err: err}
	}

	return
}

func open(filesys fs.FS, name string, unmarshal func(r io.Reader) error) (err error) {
	file, err := filesys.Open(name)
	if err != nil {
		return
	}
	defer file.Close()

	err = unmarshal(file)
	if err != nil {
		err = &ErrFile{Name: name, Err: err}
	}

	return
}
