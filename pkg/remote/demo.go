package remote

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/castrank/castrank/pkg/model"
)

var (
	demoFirst = []string{"Alex", "Beth", "Cai", "Dara", "Eli", "Fern", "Gus", "Hana", "Ivo", "Jess", "Kit", "Lou", "Mo", "Nell", "Ola", "Pip", "Quin", "Ros", "Sam", "Tam"}
	demoLast  = []string{"Abbott", "Baker", "Chen", "Doyle", "Evans", "Frost", "Gray", "Hale", "Iqbal", "Jones", "Khan", "Lowe", "Marsh", "Nash", "Owen", "Price", "Reid", "Shaw", "Tait", "Vance"}
	demoRoles = []model.RoleMeta{
		{Name: "Lighting Designer", Category: "Lighting", MainGroup: "Tech"},
		{Name: "Sound Designer", Category: "Sound", MainGroup: "Tech"},
		{Name: "Stage Manager", Category: "Stage management", MainGroup: "Tech"},
		{Name: "Producer", Category: "Production", MainGroup: "Prod"},
		{Name: "Director", Category: "Direction", MainGroup: "Prod"},
		{Name: "Actor", Category: "Acting", MainGroup: "Cast"},
		{Name: "Musical Director", Category: "Music", MainGroup: "Band"},
		{Name: "Violin", Category: "Strings", MainGroup: "Band"},
	}
)

// DemoData builds a deterministic ranking of n people with role detail,
// for running the viewer without a service.
func DemoData(n int, seed uint64) ([]model.Person, model.RolesPayload) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	people := make([]model.Person, n)
	byRole := make(map[string][]model.RankedPerson)

	for i := range people {
		first := demoFirst[rng.IntN(len(demoFirst))]
		last := demoLast[rng.IntN(len(demoLast))]
		name := fmt.Sprintf("%s %s", first, last)
		if i >= len(demoFirst)*len(demoLast)/4 {
			name = fmt.Sprintf("%s %d", name, i)
		}
		count := 1 + int(rng.ExpFloat64()*6)
		role := demoRoles[rng.IntN(len(demoRoles))]
		topCount := 1 + rng.IntN(count)
		startYear := 2000 + rng.IntN(20)
		endYear := startYear + rng.IntN(6)
		p := model.Person{
			PID:                 int64(i + 1),
			Name:                name,
			Slug:                strings.ToLower(strings.ReplaceAll(name, " ", "-")),
			Count:               count,
			NumShows:            max(1, count-rng.IntN(count)),
			NumTitles:           max(1, count/2),
			TopRole:             role.Name,
			TopRoleCount:        topCount,
			TopPct:              float64(topCount) / float64(count) * 100,
			TopSubcategory:      role.Category,
			TopSubcategoryCount: topCount,
			TopCategory:         role.MainGroup,
			TopCategoryCount:    topCount,
			FirstCreditDate:     fmt.Sprintf("%d-%02d-01", startYear, 1+rng.IntN(12)),
			LastCreditDate:      fmt.Sprintf("%d-%02d-01", endYear, 1+rng.IntN(12)),
			Active:              endYear >= 2022,
		}
		p.CreditDateRange = model.FormatDateRange(p.FirstCreditDate, p.LastCreditDate)
		people[i] = p
		byRole[role.Name] = append(byRole[role.Name], model.RankedPerson{PID: p.PID, Name: p.Name, Slug: p.Slug, Count: topCount})
	}

	roles := make([]model.RoleMeta, 0, len(demoRoles))
	for _, r := range demoRoles {
		ranked := byRole[r.Name]
		model.SortRanked(ranked)
		r.NumPeople = len(ranked)
		roles = append(roles, r)
	}
	return people, model.RolesPayload{Roles: roles, ByRole: byRole}
}
