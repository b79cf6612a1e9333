package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&ProjectInfo{},
	&Snapshot{},
	&Ref{},
}

// HeadRef names the ref that points at the tip of the snapshot chain.
const HeadRef = "HEAD"

////////////////////////
// SYSTEM MODELS
////////////////////////

// ProjectInfo describes the project that owns the snapshot database
type ProjectInfo struct {
	gorm.Model
	Name       string `json:"name" gorm:"size:127;uniqueIndex"`
	Background string `json:"background" gorm:"size:255"`
}

func (*ProjectInfo) TableName() string {
	return "project_infos"
}

////////////////////////
// HISTORY MODELS
////////////////////////

// Snapshot is one immutable state of the markers file.
// ID is the content address of ParentID and Content, so identical commits
// on the same parent collapse into a single row.
type Snapshot struct {
	ID        string         `json:"id" gorm:"primaryKey;size:64"`
	ParentID  *string        `json:"parentId" gorm:"size:64;index"`
	Content   datatypes.JSON `json:"content"`
	Author    string         `json:"author" gorm:"size:127"`
	Message   string         `json:"message" gorm:"size:255"`
	CreatedAt time.Time      `json:"createdAt" gorm:"index"`
}

func (*Snapshot) TableName() string {
	return "snapshots"
}

// Ref is a named pointer to a snapshot.
type Ref struct {
	Name       string    `json:"name" gorm:"primaryKey;size:64"`
	SnapshotID string    `json:"snapshotId" gorm:"size:64;not null"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (*Ref) TableName() string {
	return "refs"
}
