package repository

import "video-relay/domain/model"

// IStaging is the local scratch directory used between download and upload.
type IStaging interface {
	NewName(originalName string) string
	Write(name string, data []byte) (*model.StagedFile, error)
	Remove(path string) error
	MaxSize() int64
}
