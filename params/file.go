package params

import (
	"fmt"
	"io/ioutil"
	gomath "math"
	"sync"
	"time"

	"github.com/radovskyb/watcher"
	"github.com/roboticeyes/worldtobase/event"
	"github.com/tidwall/gjson"
)

var log = event.Log

// nodeSection is where a ROS 2 style parameters file keeps the parameters of
// the node. Flat files without this section are accepted as well.
const nodeSection = "world_to_base.ros__parameters"

// FileStore is a Store backed by a JSON parameters file. Keys missing from
// the file keep their default value. Once Watch has been called the file is
// reloaded whenever it is written.
type FileStore struct {
	path   string
	params Parameters
	mutex  sync.RWMutex // guards params, which is replaced on reload
	watch  *watcher.Watcher
}

// NewFileStore loads the parameters file at path
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Snapshot returns the parameters as last loaded
func (s *FileStore) Snapshot() Parameters {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.params
}

func (s *FileStore) load() error {
	buf, err := ioutil.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("cannot read parameters file: %w", err)
	}
	p, err := Parse(buf)
	if err != nil {
		return fmt.Errorf("cannot parse parameters file %s: %w", s.path, err)
	}

	s.mutex.Lock()
	s.params = p
	s.mutex.Unlock()

	log.WithFields(event.Fields{
		"file":    s.path,
		"base_id": p.BaseID,
	}).Info("Loaded parameters")
	return nil
}

// Parse reads parameters from a JSON document. Missing keys are taken from
// Defaults.
func Parse(buf []byte) (Parameters, error) {
	if !gjson.ValidBytes(buf) {
		return Parameters{}, fmt.Errorf("invalid JSON")
	}
	doc := gjson.ParseBytes(buf)
	if section := doc.Get(nodeSection); section.Exists() {
		doc = section
	}

	p := Defaults()
	if v := doc.Get(KeyBaseID); v.Exists() {
		if v.Type != gjson.Number || v.Num != gomath.Trunc(v.Num) {
			return Parameters{}, fmt.Errorf("parameter %s must be an integer, got %s", KeyBaseID, v.Raw)
		}
		p.BaseID = v.Int()
	}
	floats := map[string]*float64{
		KeyBaseQx:         &p.BaseQx,
		KeyBaseQy:         &p.BaseQy,
		KeyBaseQz:         &p.BaseQz,
		KeyBaseQw:         &p.BaseQw,
		KeyInitialOffsetX: &p.InitialOffsetX,
		KeyInitialOffsetY: &p.InitialOffsetY,
		KeyInitialOffsetZ: &p.InitialOffsetZ,
	}
	for key, dst := range floats {
		if v := doc.Get(key); v.Exists() {
			if v.Type != gjson.Number {
				return Parameters{}, fmt.Errorf("parameter %s must be a number, got %s", key, v.Raw)
			}
			*dst = v.Float()
		}
	}
	topics := map[string]*string{
		KeySubTopic: &p.SubTopic,
		KeyPubTopic: &p.PubTopic,
	}
	for key, dst := range topics {
		if v := doc.Get(key); v.Exists() {
			if v.Type != gjson.String || v.Str == "" {
				return Parameters{}, fmt.Errorf("parameter %s must be a non empty string, got %s", key, v.Raw)
			}
			*dst = v.Str
		}
	}
	return p, nil
}

// Watch starts polling the parameters file every interval and reloads it
// after each write. A file which fails to load keeps the previous parameters.
func (s *FileStore) Watch(interval time.Duration) error {
	if interval < time.Nanosecond {
		return fmt.Errorf("cannot watch parameters file: polling interval %v is not positive", interval)
	}
	watch := watcher.New()
	watch.FilterOps(watcher.Write)
	if err := watch.Add(s.path); err != nil {
		return fmt.Errorf("cannot watch parameters file: %w", err)
	}
	s.watch = watch

	go func() {
		for {
			select {
			case <-watch.Event:
				log.Info("Parameters file got changed, reload parameters")
				if err := s.load(); err != nil {
					log.Error(err)
				}
			case err := <-watch.Error:
				if err == watcher.ErrWatchedFileDeleted {
					// Usually happens because the watcher looks for the file as the OS is updating it
					continue
				}
				log.Error("Parameters file cannot be watched: ", err)
			case <-watch.Closed:
				return
			}
		}
	}()

	go func() {
		if err := watch.Start(interval); err != nil {
			log.Error(err)
		}
	}()
	watch.Wait()
	return nil
}

// Close stops watching the file
func (s *FileStore) Close() {
	if s.watch != nil {
		s.watch.Close()
	}
}
