package routes

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BouyguesTelecom/static.js-sub000/internal/errors"
)

// Artifact file names written to the cache directory. Cross-process
// consumers (the bundler, the start server) read these instead of
// re-scanning the page tree.
const (
	RoutesArtifact   = "routes.json"
	NoScriptArtifact = "noscript.json"
	StylesArtifact   = "styles.json"
	EpochArtifact    = "epoch"
)

// WriteArtifacts persists the table snapshot into dir: the route map
// (name → source path), the script-excluded route list, and the per-route
// style cascade.
func WriteArtifacts(dir string, t *Table) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.New("E103").WithPath(dir).Wrap(err)
	}

	routeMap := make(map[string]string, t.Len())
	styleMap := make(map[string][]string, t.Len())
	var noScript []string
	for _, name := range t.Names() {
		e, _ := t.Lookup(name)
		routeMap[name] = e.SourceFile
		styleMap[name] = e.Styles
		if !e.HasClientScript {
			noScript = append(noScript, name)
		}
	}
	sort.Strings(noScript)
	if noScript == nil {
		noScript = []string{}
	}

	if err := writeJSON(filepath.Join(dir, RoutesArtifact), routeMap); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, NoScriptArtifact), noScript); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, StylesArtifact), styleMap)
}

// ReadRoutesArtifact loads the persisted route map.
func ReadRoutesArtifact(dir string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(dir, RoutesArtifact))
	if err != nil {
		return nil, err
	}
	var routeMap map[string]string
	if err := json.Unmarshal(data, &routeMap); err != nil {
		return nil, err
	}
	return routeMap, nil
}

// WriteEpochArtifact records the current invalidation epoch for
// out-of-process consumers.
func WriteEpochArtifact(dir string, epoch int64) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.New("E103").WithPath(dir).Wrap(err)
	}
	data := strconv.FormatInt(epoch, 10) + "\n"
	return os.WriteFile(filepath.Join(dir, EpochArtifact), []byte(data), 0644)
}

// ReadEpochArtifact returns the persisted epoch, or 0 when absent.
func ReadEpochArtifact(dir string) (int64, error) {
	data, err := os.ReadFile(filepath.Join(dir, EpochArtifact))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.New("E103").WithPath(path).Wrap(err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E103").WithPath(path).Wrap(err)
	}
	return nil
}
