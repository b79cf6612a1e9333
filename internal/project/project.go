// Package project resolves the on-disk layout of one editor project.
package project

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tdmap/mapbuilder/internal/util"
)

var (
	ErrExists      = errors.New("project already exists")
	ErrNotFound    = errors.New("project not found")
	ErrInvalidName = errors.New("invalid project name")
)

const (
	// MarkersFile is the working file holding the marker store.
	MarkersFile = "entities.json"
	// BackgroundStem is the file name, without extension, of the map image.
	BackgroundStem = "map"
)

// ImageExts are the background image extensions looked up, in order.
var ImageExts = []string{"png", "jpeg", "jpg"}

// Files names per-project files that come from configuration.
type Files struct {
	Bookmark string
	Database string
}

// Paths is the resolved layout of a project directory.
type Paths struct {
	Name       string
	Dir        string
	Markers    string
	Bookmark   string
	Database   string
	Background string // empty when no image was found
}

// Open resolves an existing project under root.
func Open(root, name string, files Files) (Paths, error) {
	name = util.SanitizeName(name)
	if err := checkName(name); err != nil {
		return Paths{}, err
	}

	dir := filepath.Join(root, name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Paths{}, fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	return Paths{
		Name:       name,
		Dir:        dir,
		Markers:    filepath.Join(dir, MarkersFile),
		Bookmark:   resolve(dir, files.Bookmark),
		Database:   resolve(dir, files.Database),
		Background: FindFile(dir, BackgroundStem, ImageExts...),
	}, nil
}

// Create makes a new project directory under root and copies the background
// image into it as map.<ext>. backgroundSrc may be empty.
func Create(root, name, backgroundSrc string, files Files) (Paths, error) {
	name = util.SanitizeName(name)
	if err := checkName(name); err != nil {
		return Paths{}, err
	}

	dir := filepath.Join(root, name)
	if _, err := os.Stat(dir); err == nil {
		return Paths{}, fmt.Errorf("%s: %w", name, ErrExists)
	}

	var ext string
	if backgroundSrc != "" {
		ext = strings.TrimPrefix(strings.ToLower(filepath.Ext(backgroundSrc)), ".")
		if !slices.Contains(ImageExts, ext) {
			return Paths{}, fmt.Errorf("unsupported background image type %q", filepath.Ext(backgroundSrc))
		}
		if !util.FileExists(backgroundSrc) {
			return Paths{}, fmt.Errorf("background image %s does not exist", backgroundSrc)
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return Paths{}, fmt.Errorf("failed to create project directory: %w", err)
	}
	if backgroundSrc != "" {
		if err := copyFile(backgroundSrc, filepath.Join(dir, BackgroundStem+"."+ext)); err != nil {
			return Paths{}, err
		}
	}
	return Open(root, name, files)
}

// List returns the project names under root, sorted. A missing root is
// created and yields no projects.
func List(root string) ([]string, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create projects directory: %w", err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	names := []string{}
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// FindFile returns the first regular file in dir named stem.<ext>, trying
// exts in order. It returns "" when nothing matches.
func FindFile(dir, stem string, exts ...string) string {
	for _, ext := range exts {
		p := filepath.Join(dir, stem+"."+ext)
		if util.FileExists(p) {
			return p
		}
	}
	return ""
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}

func resolve(dir, file string) string {
	if file == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open background image: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create background copy: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy background image: %w", err)
	}
	return out.Close()
}
