package model

import (
	"encoding/json"
	"fmt"
	"io"
)

// FileDescriptor references a file the backend already stores for a
// submission. The backend emits both name/file_name and size/file_size
// spellings; either is accepted.
type FileDescriptor struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Size     int64  `json:"size" yaml:"size"`
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
	MimeType string `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
}

// UnmarshalJSON accepts the alternate file_name/file_size keys.
func (d *FileDescriptor) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       string      `json:"id"`
		Name     string      `json:"name"`
		FileName string      `json:"file_name"`
		Size     json.Number `json:"size"`
		FileSize json.Number `json:"file_size"`
		URL      string      `json:"url"`
		MimeType string      `json:"mime_type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("model: decode file descriptor: %w", err)
	}
	d.ID = raw.ID
	d.Name = raw.Name
	if d.Name == "" {
		d.Name = raw.FileName
	}
	size := raw.Size
	if size == "" {
		size = raw.FileSize
	}
	d.Size = 0
	if size != "" {
		n, err := size.Float64()
		if err != nil {
			return fmt.Errorf("model: decode file size: %w", err)
		}
		d.Size = int64(n)
	}
	d.URL = raw.URL
	d.MimeType = raw.MimeType
	return nil
}

// FileDescriptorsFrom extracts descriptors from a snapshot value. Values that
// arrived as generic JSON (maps) are converted; anything else yields nil.
func FileDescriptorsFrom(value any) []FileDescriptor {
	switch typed := value.(type) {
	case nil:
		return nil
	case FileDescriptor:
		return []FileDescriptor{typed}
	case []FileDescriptor:
		return typed
	case map[string]any:
		if d, ok := descriptorFromMap(typed); ok {
			return []FileDescriptor{d}
		}
		return nil
	case []any:
		out := make([]FileDescriptor, 0, len(typed))
		for _, item := range typed {
			switch entry := item.(type) {
			case FileDescriptor:
				out = append(out, entry)
			case map[string]any:
				if d, ok := descriptorFromMap(entry); ok {
					out = append(out, d)
				}
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}

func descriptorFromMap(m map[string]any) (FileDescriptor, bool) {
	data, err := json.Marshal(m)
	if err != nil {
		return FileDescriptor{}, false
	}
	var d FileDescriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return FileDescriptor{}, false
	}
	if d.ID == "" {
		return FileDescriptor{}, false
	}
	return d, true
}

// LocalFile is a newly selected upload that has not reached the backend yet.
type LocalFile struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// LocalFilesFrom extracts pending uploads from a snapshot value.
func LocalFilesFrom(value any) []LocalFile {
	switch typed := value.(type) {
	case LocalFile:
		return []LocalFile{typed}
	case []LocalFile:
		return typed
	case []any:
		var out []LocalFile
		for _, item := range typed {
			if f, ok := item.(LocalFile); ok {
				out = append(out, f)
			}
		}
		return out
	default:
		return nil
	}
}
