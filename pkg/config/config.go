// Package config loads sdsio.yml/sdsio.yaml from the working
// directory into a stream.Config, following the same
// load-with-fallback-and-warning style the object dictionary parser
// uses for malformed EDS sections: every bad or missing value falls
// back to its default and is logged, never treated as fatal.
package config

import (
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/samsamfire/sdsio/pkg/stream"
)

// raw mirrors the YAML document shape; every field is optional.
type raw struct {
	Dir      *string `yaml:"dir"`
	IdxStart *int    `yaml:"idx-start"`
	IdxEnd   *int    `yaml:"idx-end"`
	IdxList  []int   `yaml:"idx-list"`
}

// Load looks for sdsio.yml then sdsio.yaml under workDir and returns
// the stream.Config it describes. A missing or unparsable file, or any
// individually invalid key, is logged and falls back to the default
// for that key; Load itself never fails.
func Load(workDir string) stream.Config {
	cfg := stream.DefaultConfig(workDir)

	path := findConfigFile(workDir)
	if path == "" {
		log.Warn("sdsio.yml: no configuration file found, using default values")
		return cfg
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("sdsio.yml: could not read %q, using default values: %v", path, err)
		return cfg
	}

	var doc raw
	if err := yaml.Unmarshal(data, &doc); err != nil {
		log.Warnf("sdsio.yml: could not parse %q, using default values: %v", path, err)
		return cfg
	}

	applyDir(&cfg, workDir, doc.Dir)
	applyIdxStart(&cfg, doc.IdxStart)
	applyIdxEnd(&cfg, doc.IdxEnd)
	applyIdxList(&cfg, doc.IdxList)
	return cfg
}

func findConfigFile(workDir string) string {
	for _, name := range []string{"sdsio.yml", "sdsio.yaml"} {
		candidate := filepath.Join(workDir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func applyDir(cfg *stream.Config, workDir string, dir *string) {
	if dir == nil || *dir == "" {
		return
	}
	d := *dir
	if !filepath.IsAbs(d) {
		d = filepath.Join(workDir, d)
	}
	if info, err := os.Stat(d); err == nil && info.IsDir() {
		cfg.Dir = d
		return
	}
	if err := os.MkdirAll(d, 0o755); err != nil {
		log.Warnf("sdsio.yml: directory %q does not exist and could not be created, using default %q: %v", d, cfg.Dir, err)
		return
	}
	log.Infof("sdsio.yml: directory %q did not exist and was created", d)
	cfg.Dir = d
}

func applyIdxStart(cfg *stream.Config, idxStart *int) {
	if idxStart == nil {
		return
	}
	if *idxStart < 0 {
		log.Warnf("sdsio.yml: 'idx-start' must be >= 0, using default %d", cfg.IdxStart)
		return
	}
	cfg.IdxStart = *idxStart
	cfg.Explicit = true
}

func applyIdxEnd(cfg *stream.Config, idxEnd *int) {
	if idxEnd == nil {
		return
	}
	if *idxEnd < 0 || *idxEnd < cfg.IdxStart {
		log.Warnf("sdsio.yml: 'idx-end' must be >= 0 and >= idx-start, using default %d", cfg.IdxEnd)
		return
	}
	cfg.IdxEnd = *idxEnd
	cfg.Explicit = true
}

func applyIdxList(cfg *stream.Config, idxList []int) {
	if idxList == nil {
		return
	}
	seen := make(map[int]bool, len(idxList))
	out := make([]int, 0, len(idxList))
	for _, v := range idxList {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	if len(out) == 0 {
		log.Warn("sdsio.yml: 'idx-list' must be a non-empty list of integers, using idx-start/idx-end instead")
		return
	}
	cfg.IdxList = out
	cfg.Explicit = true
}
