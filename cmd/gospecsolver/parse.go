package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/speclab/gospeccore"
	"github.com/speclab/gospeccore/pkg/models"
)

// readSpectrumFile parses a two-column (wavelength, value) text file.
// Columns may be separated by whitespace, commas or semicolons; blank lines
// and #-comments are skipped.
func readSpectrumFile(path string) (models.SpectrumData, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.SpectrumData{}, err
	}
	defer f.Close()

	var spec models.SpectrumData
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.ReplaceAll(line, ",", " ")
		line = strings.ReplaceAll(line, ";", " ")
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return models.SpectrumData{}, fmt.Errorf("%s:%d: expected two columns, got %q", path, lineNo, line)
		}
		wl, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return models.SpectrumData{}, fmt.Errorf("%s:%d: bad wavelength %q: %w", path, lineNo, fields[0], err)
		}
		val, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return models.SpectrumData{}, fmt.Errorf("%s:%d: bad value %q: %w", path, lineNo, fields[1], err)
		}
		spec.Wavelengths = append(spec.Wavelengths, wl)
		spec.Values = append(spec.Values, val)
	}
	if err := scanner.Err(); err != nil {
		return models.SpectrumData{}, err
	}
	if len(spec.Wavelengths) == 0 {
		return models.SpectrumData{}, fmt.Errorf("%s: no data points", path)
	}
	return spec, nil
}

var spectrumExtensions = map[string]bool{".txt": true, ".csv": true, ".tsv": true, ".dat": true}

// loadReferenceDir reads every spectrum file in dir as a named standard and
// aligns it onto the sample grid. The component name is the file name without
// its extension.
func loadReferenceDir(dir string, grid []float64) (gospeccore.ReferenceMatrix, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return gospeccore.ReferenceMatrix{}, err
	}

	var names []string
	byName := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !spectrumExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		names = append(names, name)
		byName[name] = filepath.Join(dir, e.Name())
	}
	if len(names) == 0 {
		return gospeccore.ReferenceMatrix{}, fmt.Errorf("no standard spectra found in %s", dir)
	}
	sort.Strings(names)

	refs := gospeccore.ReferenceMatrix{Names: names}
	for _, name := range names {
		spec, err := readSpectrumFile(byName[name])
		if err != nil {
			return gospeccore.ReferenceMatrix{}, err
		}
		aligned, err := gospeccore.Interpolate(spec.Wavelengths, spec.Values, grid)
		if err != nil {
			return gospeccore.ReferenceMatrix{}, fmt.Errorf("standard %q: %w", name, err)
		}
		refs.Spectra = append(refs.Spectra, aligned)
	}
	return refs, nil
}

// loadCalibration reads a feature calibration model from JSON.
func loadCalibration(path string) (gospeccore.FeatureCalibration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return gospeccore.FeatureCalibration{}, err
	}
	var cal gospeccore.FeatureCalibration
	if err := json.Unmarshal(raw, &cal); err != nil {
		return gospeccore.FeatureCalibration{}, fmt.Errorf("%s: %w", path, err)
	}
	return cal, nil
}

// loadDivisors parses repeated name=path flags into divisor curves aligned
// onto the sample grid.
func loadDivisors(specs []string, grid []float64) (map[string][]float64, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	divisors := make(map[string][]float64, len(specs))
	for _, s := range specs {
		name, path, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("bad --divisor %q, expected name=path", s)
		}
		spec, err := readSpectrumFile(path)
		if err != nil {
			return nil, err
		}
		aligned, err := gospeccore.Interpolate(spec.Wavelengths, spec.Values, grid)
		if err != nil {
			return nil, fmt.Errorf("divisor %q: %w", name, err)
		}
		divisors[name] = aligned
	}
	return divisors, nil
}
