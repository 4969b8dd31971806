package transfer

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// PartNamingKind selects where composite part objects are written.
type PartNamingKind int

const (
	// NoPrefix writes parts as <uuid>/<object>.part-NNNNN.
	NoPrefix PartNamingKind = iota
	// Prefixed writes parts as <prefix>/<uuid>/<object>.part-NNNNN.
	Prefixed
	// ObjectNamePrefix writes parts as <object>/<uuid>.part-NNNNN.
	ObjectNamePrefix
)

// PartNaming names the temporary part objects of a composite upload.
type PartNaming struct {
	Kind   PartNamingKind
	Prefix string
}

// ParsePartNaming maps the textual forms none, prefix and object.
func ParsePartNaming(kind, prefix string) (PartNaming, error) {
	var n PartNaming
	switch strings.ToLower(kind) {
	case "", "none":
		n.Kind = NoPrefix
	case "prefix":
		n = PartNaming{Kind: Prefixed, Prefix: prefix}
	case "object":
		n.Kind = ObjectNamePrefix
	default:
		return n, fmt.Errorf("unknown part naming %q", kind)
	}
	return n, n.validate()
}

func (n PartNaming) validate() error {
	switch n.Kind {
	case NoPrefix, ObjectNamePrefix:
		return nil
	case Prefixed:
		if strings.Trim(n.Prefix, "/") == "" {
			return errors.New("prefixed part naming requires a prefix")
		}
		return validatePrefix(n.Prefix)
	}
	return fmt.Errorf("unknown part naming kind %d", int(n.Kind))
}

// namer returns the part-name function for one composite item. Every call
// to namer draws a fresh uuid so concurrent uploads of the same object
// never share part names.
func (n PartNaming) namer(object string) func(index int) string {
	id := uuid.NewString()
	return func(index int) string {
		suffix := fmt.Sprintf(".part-%05d", index)
		switch n.Kind {
		case Prefixed:
			return strings.Trim(n.Prefix, "/") + "/" + id + "/" + object + suffix
		case ObjectNamePrefix:
			return object + "/" + id + suffix
		}
		return id + "/" + object + suffix
	}
}

var partNamePattern = regexp.MustCompile(`\.part-\d{5}$`)

// IsPartName reports whether name looks like a composite part object.
func IsPartName(name string) bool {
	return partNamePattern.MatchString(name)
}

// objectName derives the target object name for a local source path.
func objectName(prefix, path string) string {
	name := filepath.ToSlash(filepath.Clean(path))
	if vol := filepath.VolumeName(path); vol != "" {
		name = strings.TrimPrefix(name, filepath.ToSlash(vol))
	}
	name = strings.TrimLeft(name, "/")
	for strings.HasPrefix(name, "../") {
		name = strings.TrimPrefix(name, "../")
	}
	return buildRemotePath(prefix, name)
}

func buildRemotePath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + name
}

// destinationPath maps an object name to a path below the download
// directory, rejecting names that would land outside of it.
func destinationPath(cfg DownloadConfig, name string) (string, error) {
	rel := strings.TrimPrefix(name, cfg.StripPrefix)
	dir := filepath.Clean(cfg.downloadDir())
	dest := filepath.Join(dir, filepath.FromSlash(rel))

	within, err := filepath.Rel(dir, dest)
	if err != nil || within == "." || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s -> %s", ErrPathTraversal, name, dest)
	}
	return dest, nil
}
