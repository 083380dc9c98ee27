package paramstores

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const fileExt = ".json"

// FileAdapter is a neural net param store implementation that uses the filesystem, its main purpose is to facilitate
// testing. Given its low performance it is strongly discouraged for production use
type FileAdapter struct {
	Path string
}

// NewFileAdapter returns an initialized file net param store object
func NewFileAdapter(conf map[string]interface{}) (*FileAdapter, error) {
	path, ok := conf["Path"].(string)
	if !ok || path == "" {
		return nil, errors.New("the file net param store requires a Path")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	return &FileAdapter{Path: path}, nil
}

func (fa FileAdapter) file(id string) string {
	return filepath.Join(fa.Path, toKey(id)+fileExt)
}

// Delete can be used to delete the state of a specific neural net from a file on disk
func (fa FileAdapter) Delete(id string) error {
	err := os.Remove(fa.file(id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// List can be used to get the IDs of the stored nets, in lexical order
func (fa FileAdapter) List(offset, limit int, pattern string) ([]string, int, error) {
	entries, err := os.ReadDir(fa.Path)
	if err != nil {
		return nil, 0, err
	}
	ids := []string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		id, ok := fromKey(strings.TrimSuffix(entry.Name(), fileExt))
		if !ok {
			continue
		}
		if match, err := filepath.Match(pattern, id); err != nil {
			return nil, 0, err
		} else if !match {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if offset >= len(ids) {
		return []string{}, 0, nil
	}
	end, next := offset+limit, offset+limit
	if limit <= 0 || end >= len(ids) {
		end, next = len(ids), 0
	}
	return ids[offset:end], next, nil
}

// Load can be used to retrieve the state of a specific neural net from a file on disk
func (fa FileAdapter) Load(id string, np NetParams) (bool, error) {
	value, err := os.ReadFile(fa.file(id))
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, np.Unmarshal(value)
}

// Save can be used to upsert the state of a specific neural net to a file on disk
func (fa FileAdapter) Save(id string, np NetParams) error {
	value, err := np.Marshal()
	if err != nil {
		return err
	}
	f, err := os.Create(fa.file(id))
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err = f.Write(value); err != nil {
		return err
	}
	return f.Sync()
}
