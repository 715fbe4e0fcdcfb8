package loader_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/castrank/castrank/pkg/loader"
	"github.com/castrank/castrank/pkg/model"
)

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	people := []model.Person{
		{PID: 1, Name: "Ann", Slug: "ann", Count: 4, CreditDateRange: "2019-01-01 - 2020-01-01"},
		{PID: 2, Name: "Bo", Slug: "bo", Count: 2, Active: true},
	}
	roles := model.RolesPayload{
		Roles: []model.RoleMeta{{Name: "Actor", NumPeople: 2, Category: "Acting", MainGroup: "Cast"}},
		ByRole: map[string][]model.RankedPerson{
			"Actor": {{PID: 1, Name: "Ann", Slug: "ann", Count: 3}, {PID: 2, Name: "Bo", Slug: "bo", Count: 1}},
		},
	}

	if err := loader.WriteSnapshot(dir, people, roles); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	snap, err := loader.LoadSnapshot(dir)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(snap.People) != 2 || snap.People[0] != people[0] || snap.People[1] != people[1] {
		t.Errorf("people = %+v", snap.People)
	}
	if len(snap.Roles.Roles) != 1 || len(snap.Roles.ByRole["Actor"]) != 2 {
		t.Errorf("roles = %+v", snap.Roles)
	}
	if snap.Skipped != 0 {
		t.Errorf("Skipped = %d", snap.Skipped)
	}
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	lines := []string{
		`{"pid": 1, "name": "Ann", "count": 3}`,
		`not json`,
		``,
		`{"pid": 0, "name": "No Id"}`,
		`{"pid": 2, "name": "Bo", "count": 1}`,
	}
	if err := os.WriteFile(filepath.Join(dir, loader.PeopleFile), []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatal(err)
	}

	snap, err := loader.LoadSnapshot(dir)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(snap.People) != 2 {
		t.Fatalf("loaded %d people, want 2", len(snap.People))
	}
	if snap.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", snap.Skipped)
	}
	if snap.Roles.ByRole == nil {
		t.Error("missing roles file should give an empty payload")
	}
}

func TestLoadMissingSnapshot(t *testing.T) {
	_, err := loader.LoadSnapshot(t.TempDir())
	if err == nil {
		t.Fatal("expected error for empty directory")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want it to wrap os.ErrNotExist", err)
	}
}

func TestRoleLineDefaultsNumPeople(t *testing.T) {
	path := filepath.Join(t.TempDir(), loader.RolesFile)
	data := `{"role": {"name": "Actor"}, "people": [{"pid": 1, "name": "A", "count": 2}, {"pid": 2, "name": "B", "count": 1}]}
{"role": {}, "people": []}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	roles, skipped, err := loader.LoadRolesFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 1 || len(roles.Roles) != 1 || roles.Roles[0].NumPeople != 2 {
		t.Errorf("roles = %+v skipped = %d", roles.Roles, skipped)
	}
}
