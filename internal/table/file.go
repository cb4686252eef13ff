/*
credgate - Pluggable credential authentication engine.
Copyright © 2019-2024 Max Mazurov <fox.cpp@disroot.org>, credgate contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package table

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/credgate/credgate/framework/config"
	"github.com/credgate/credgate/framework/hooks"
	"github.com/credgate/credgate/framework/log"
	"github.com/credgate/credgate/framework/module"
)

const FileModName = "table.file"

// File is a table backed by a text file with 'key: value' lines. It is
// reloaded when modified and on the reload signal.
//
// It is also a MutableTable, changes are written back atomically.
type File struct {
	instName string
	file     string

	m      map[string]string
	mLck   sync.RWMutex
	mStamp time.Time

	// Serializes modifications of the file.
	writeLck sync.Mutex

	stopReloader chan struct{}
	forceReload  chan struct{}

	log log.Logger
}

func NewFile(_, instName string, _, inlineArgs []string) (module.Module, error) {
	m := &File{
		instName:     instName,
		m:            make(map[string]string),
		stopReloader: make(chan struct{}),
		forceReload:  make(chan struct{}),
		log:          log.Logger{Name: FileModName},
	}

	switch len(inlineArgs) {
	case 1:
		m.file = inlineArgs[0]
	case 0:
	default:
		return nil, fmt.Errorf("%s: cannot use multiple files with single %s, use %s multiple times to do so", FileModName, FileModName, FileModName)
	}

	return m, nil
}

func (f *File) Name() string {
	return FileModName
}

func (f *File) InstanceName() string {
	return f.instName
}

func (f *File) Init(cfg *config.Map) error {
	var file string
	cfg.Bool("debug", true, false, &f.log.Debug)
	cfg.String("file", false, false, "", &file)
	if _, err := cfg.Process(); err != nil {
		return err
	}

	if file != "" {
		if f.file != "" {
			return fmt.Errorf("%s: file path specified both in directive and in argument, do it once", FileModName)
		}
		f.file = file
	}
	if f.file == "" {
		return fmt.Errorf("%s: file path is not specified", FileModName)
	}
	if !filepath.IsAbs(f.file) && config.ConfigDirectory != "" {
		f.file = filepath.Join(config.ConfigDirectory, f.file)
	}

	if err := readFile(f.file, f.m); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		f.log.Printf("ignoring non-existent file: %s", f.file)
	}

	go f.reloader()
	hooks.AddHook(hooks.EventReload, func() {
		select {
		case f.forceReload <- struct{}{}:
		default:
		}
	})

	return nil
}

var reloadInterval = 15 * time.Second

func (f *File) reloader() {
	defer func() {
		if err := recover(); err != nil {
			stack := debug.Stack()
			log.Printf("panic during m reload: %v\n%s", err, stack)
		}
	}()

	t := time.NewTicker(reloadInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			f.reload(false)

		case <-f.forceReload:
			f.reload(true)

		case <-f.stopReloader:
			f.stopReloader <- struct{}{}
			return
		}
	}
}

func (f *File) reload(force bool) {
	info, err := os.Stat(f.file)
	if err != nil {
		if os.IsNotExist(err) {
			f.mLck.Lock()
			f.m = map[string]string{}
			f.mLck.Unlock()
			return
		}
		f.log.Error("os stat", err)
		return
	}
	if !force && (info.ModTime().Before(f.mStamp) || time.Since(info.ModTime()) < (reloadInterval/2)) {
		return // reload not necessary
	}

	f.log.Debugf("reloading")

	newm := make(map[string]string, len(f.m)+5)
	if err := readFile(f.file, newm); err != nil {
		if os.IsNotExist(err) {
			f.log.Printf("ignoring non-existent file: %s", f.file)
			return
		}

		f.log.Println(err)
		return
	}
	// after reading we need to check whether file has changed in between
	info2, err := os.Stat(f.file)
	if err != nil {
		f.log.Println(err)
		return
	}

	if !info2.ModTime().Equal(info.ModTime()) {
		// file has changed in the meantime
		return
	}

	f.mLck.Lock()
	f.m = newm
	f.mStamp = info.ModTime()
	f.mLck.Unlock()
}

func (f *File) Close() error {
	f.stopReloader <- struct{}{}
	<-f.stopReloader
	return nil
}

func readFile(path string, out map[string]string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scnr := bufio.NewScanner(f)
	lineCounter := 0

	parseErr := func(text string) error {
		return fmt.Errorf("%s:%d: %s", path, lineCounter, text)
	}

	for scnr.Scan() {
		lineCounter++
		if strings.HasPrefix(scnr.Text(), "#") {
			continue
		}

		text := strings.TrimSpace(scnr.Text())
		if text == "" {
			continue
		}

		// Only the first colon separates the key, values are hashes that
		// contain colons themselves.
		parts := strings.SplitN(text, ":", 2)
		if len(parts) == 1 {
			parts = append(parts, "")
		}

		from := strings.TrimSpace(parts[0])
		if len(from) == 0 {
			return parseErr("empty key before colon")
		}
		if _, ok := out[from]; ok {
			return parseErr("duplicate key: " + from)
		}
		out[from] = strings.TrimSpace(parts[1])
	}
	return scnr.Err()
}

func (f *File) Lookup(_ context.Context, val string) (string, bool, error) {
	// The existing map is never modified, instead it is replaced with a new
	// one if reload is performed.
	f.mLck.RLock()
	usedFile := f.m
	f.mLck.RUnlock()

	newVal, ok := usedFile[val]
	if !ok || newVal == "" {
		return "", false, nil
	}
	return newVal, true, nil
}

func (f *File) Keys() ([]string, error) {
	f.mLck.RLock()
	defer f.mLck.RUnlock()

	keys := make([]string, 0, len(f.m))
	for k := range f.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *File) SetKey(key, value string) error {
	if strings.ContainsAny(key, ":\n") || strings.HasPrefix(key, "#") || strings.TrimSpace(key) != key || key == "" {
		return fmt.Errorf("%s: invalid key: %q", FileModName, key)
	}
	if strings.Contains(value, "\n") {
		return fmt.Errorf("%s: value should not contain newlines", FileModName)
	}
	return f.modify(func(m map[string]string) error {
		m[key] = value
		return nil
	})
}

func (f *File) RemoveKey(key string) error {
	return f.modify(func(m map[string]string) error {
		if _, ok := m[key]; !ok {
			return fmt.Errorf("%s: no such key: %s", FileModName, key)
		}
		delete(m, key)
		return nil
	})
}

// modify applies change to a fresh copy of the file contents and replaces
// the file using rename.
func (f *File) modify(change func(map[string]string) error) error {
	f.writeLck.Lock()
	defer f.writeLck.Unlock()

	newm := make(map[string]string)
	if err := readFile(f.file, newm); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := change(newm); err != nil {
		return err
	}

	keys := make([]string, 0, len(newm))
	for k := range newm {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tmp, err := os.CreateTemp(filepath.Dir(f.file), "."+filepath.Base(f.file)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, k := range keys {
		fmt.Fprintf(w, "%s: %s\n", k, newm[k])
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), f.file); err != nil {
		return err
	}

	f.mLck.Lock()
	f.m = newm
	f.mStamp = time.Now()
	f.mLck.Unlock()
	return nil
}

func init() {
	var _ module.MutableTable = &File{}
	module.Register(FileModName, NewFile)
}
