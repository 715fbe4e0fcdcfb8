package loader

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/castrank/castrank/pkg/model"
)

// Snapshot file names inside a data directory.
const (
	PeopleFile = "people.jsonl"
	RolesFile  = "roles.jsonl"
)

// RoleLine is one line of roles.jsonl: a role and its ranked people.
type RoleLine struct {
	Role   model.RoleMeta       `json:"role"`
	People []model.RankedPerson `json:"people"`
}

// Snapshot is a local copy of the ranking and the unfiltered role detail.
type Snapshot struct {
	People []model.Person
	Roles  model.RolesPayload
	// Skipped counts malformed or invalid lines that were ignored.
	Skipped int
}

// LoadSnapshot reads people.jsonl and, if present, roles.jsonl from dir.
func LoadSnapshot(dir string) (*Snapshot, error) {
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current working directory: %w", err)
		}
	}

	people, skipped, err := LoadPeopleFromFile(filepath.Join(dir, PeopleFile))
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{People: people, Skipped: skipped}

	roles, skippedRoles, err := LoadRolesFromFile(filepath.Join(dir, RolesFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
		snap.Roles = model.RolesPayload{ByRole: map[string][]model.RankedPerson{}}
	case err != nil:
		return nil, err
	default:
		snap.Roles = roles
		snap.Skipped += skippedRoles
	}
	return snap, nil
}

// LoadPeopleFromFile reads one Person per line. Malformed lines and people
// that fail validation are skipped and counted.
func LoadPeopleFromFile(path string) ([]model.Person, int, error) {
	var people []model.Person
	skipped, err := scanLines(path, func(line []byte) bool {
		var p model.Person
		if err := json.Unmarshal(line, &p); err != nil {
			return false
		}
		if p.Validate() != nil {
			return false
		}
		people = append(people, p)
		return true
	})
	if err != nil {
		return nil, 0, err
	}
	return people, skipped, nil
}

// LoadRolesFromFile reads roles.jsonl into a payload.
func LoadRolesFromFile(path string) (model.RolesPayload, int, error) {
	out := model.RolesPayload{ByRole: make(map[string][]model.RankedPerson)}
	skipped, err := scanLines(path, func(line []byte) bool {
		var rl RoleLine
		if err := json.Unmarshal(line, &rl); err != nil || rl.Role.Name == "" {
			return false
		}
		if rl.Role.NumPeople == 0 {
			rl.Role.NumPeople = len(rl.People)
		}
		out.Roles = append(out.Roles, rl.Role)
		out.ByRole[rl.Role.Name] = rl.People
		return true
	})
	if err != nil {
		return model.RolesPayload{}, 0, err
	}
	return out, skipped, nil
}

// scanLines calls fn for every non-empty line of path and returns how
// many lines fn rejected.
func scanLines(path string, fn func(line []byte) bool) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("no snapshot found at %s: %w", path, err)
		}
		return 0, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	// Role lines carry every person holding the role and can be long
	const maxCapacity = 1024 * 1024 * 10 // 10MB
	buf := make([]byte, maxCapacity)
	scanner.Buffer(buf, maxCapacity)

	skipped := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !fn(line) {
			skipped++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("error reading snapshot file: %w", err)
	}
	return skipped, nil
}

// WriteSnapshot writes people and roles into dir, replacing any existing
// files atomically.
func WriteSnapshot(dir string, people []model.Person, roles model.RolesPayload) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := writeLines(filepath.Join(dir, PeopleFile), func(enc *json.Encoder) error {
		for i := range people {
			if err := enc.Encode(&people[i]); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}
	return writeLines(filepath.Join(dir, RolesFile), func(enc *json.Encoder) error {
		for _, role := range roles.Roles {
			if err := enc.Encode(RoleLine{Role: role, People: roles.ByRole[role.Name]}); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeLines(path string, fn func(enc *json.Encoder) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := fn(json.NewEncoder(w)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
