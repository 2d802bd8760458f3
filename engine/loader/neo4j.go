package loader

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/WessleyAI/wessley-coverage/engine/domain"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// result is the minimal interface needed from a neo4j result.
type result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
}

// runner is the minimal interface needed from a neo4j session.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (result, error)
	Close(ctx context.Context) error
}

type sessionAdapter struct {
	sess neo4j.SessionWithContext
}

func (a *sessionAdapter) Run(ctx context.Context, cypher string, params map[string]any) (result, error) {
	return a.sess.Run(ctx, cypher, params)
}

func (a *sessionAdapter) Close(ctx context.Context) error {
	return a.sess.Close(ctx)
}

// Every VehicleModel is returned, including those with no ModelYear nodes.
// Rows group on the name, so models sharing a name across makes merge.
const coverageCypher = `MATCH (m:VehicleModel)
WHERE $makeID = "" OR m.make_id = $makeID
OPTIONAL MATCH (my:ModelYear)-[:OF_MODEL]->(m)
RETURN m.name AS model, collect(DISTINCT my.year) AS years
ORDER BY model`

// Neo4jSource builds a dataset from the vehicle graph: one row per
// VehicleModel name and a covered year for every ModelYear linked to it.
type Neo4jSource struct {
	driver neo4j.DriverWithContext
	// Make restricts the models to one make, e.g. "Toyota". Empty means all.
	Make string
	// MinYear and MaxYear, when both set, fix the year universe. Otherwise
	// it is every year seen in the graph.
	MinYear, MaxYear domain.ModelYear

	newSession func(ctx context.Context) runner // for testing
}

// NewNeo4jSource creates a graph-backed source.
func NewNeo4jSource(driver neo4j.DriverWithContext) *Neo4jSource {
	return &Neo4jSource{driver: driver}
}

func (s *Neo4jSource) session(ctx context.Context) runner {
	if s.newSession != nil {
		return s.newSession(ctx)
	}
	return &sessionAdapter{sess: s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})}
}

// Load queries the graph.
func (s *Neo4jSource) Load(ctx context.Context) (domain.Dataset, error) {
	sess := s.session(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx, coverageCypher, map[string]any{"makeID": strings.ToLower(s.Make)})
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("query coverage graph: %w", err)
	}

	fixedRange := s.MinYear > 0 && s.MaxYear >= s.MinYear
	d := domain.Dataset{Coverage: domain.CoverageMap{}}
	seen := map[domain.ModelYear]bool{}

	for res.Next(ctx) {
		model, years, err := decodeCoverageRecord(res.Record())
		if err != nil {
			return domain.Dataset{}, err
		}
		d.VehicleModels = append(d.VehicleModels, model)

		var covered []domain.ModelYear
		for _, y := range years {
			if fixedRange && (y < s.MinYear || y > s.MaxYear) {
				continue
			}
			seen[y] = true
			covered = append(covered, y)
		}
		if len(covered) > 0 {
			d.Coverage[model] = covered
		}
	}
	if err := res.Err(); err != nil {
		return domain.Dataset{}, fmt.Errorf("read coverage graph: %w", err)
	}

	if fixedRange {
		for y := s.MinYear; y <= s.MaxYear; y++ {
			d.Years = append(d.Years, y)
		}
	} else {
		for y := range seen {
			d.Years = append(d.Years, y)
		}
		sort.Ints(d.Years)
	}
	return d, nil
}

func decodeCoverageRecord(rec *neo4j.Record) (domain.VehicleModel, []domain.ModelYear, error) {
	rawModel, _ := rec.Get("model")
	model, ok := rawModel.(string)
	if !ok || model == "" {
		return "", nil, fmt.Errorf("coverage graph: bad model value %v", rawModel)
	}

	rawYears, _ := rec.Get("years")
	list, _ := rawYears.([]any)
	years := make([]domain.ModelYear, 0, len(list))
	for _, v := range list {
		switch y := v.(type) {
		case int64:
			years = append(years, domain.ModelYear(y))
		case int:
			years = append(years, y)
		case nil:
		default:
			return "", nil, fmt.Errorf("coverage graph: bad year %v for %s", v, model)
		}
	}
	return model, years, nil
}
