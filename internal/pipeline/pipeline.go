// Package pipeline orchestrates the two synchronous stages of one
// tanglegram solve: BuildInstance (components A+B+C, tree parse through
// site binding) and Solve (components D+E+F+G, geometry through layout
// realization). Generalized from the teacher's internal/service.Service
// with the database/storage/scheduler collaborators removed — there is no
// persistent state or background work here, only request-scoped
// computation.
package pipeline

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/paulmach/orb"
	"go.opentelemetry.io/otel"

	"github.com/tanglegram/tangleopt/internal/geo"
	"github.com/tanglegram/tangleopt/internal/geometry"
	"github.com/tanglegram/tangleopt/internal/ilp"
	"github.com/tanglegram/tangleopt/internal/layout"
	"github.com/tanglegram/tangleopt/internal/newick"
	"github.com/tanglegram/tangleopt/internal/solver"
	"github.com/tanglegram/tangleopt/internal/treemodel"
	"github.com/tanglegram/tangleopt/pkg/config"
	apperrors "github.com/tanglegram/tangleopt/pkg/errors"
	"github.com/tanglegram/tangleopt/pkg/model"
	"github.com/tanglegram/tangleopt/pkg/utils"
)

var tracer = otel.Tracer("tangleopt/pipeline")

// GeoFormat names the encoding of a BuildRequest's site source.
type GeoFormat string

const (
	GeoFormatGeoJSON GeoFormat = "geojson"
	GeoFormatCSV     GeoFormat = "csv"
)

const defaultBoxSize = 100.0

// BuildRequest bundles the raw sources and binding parameters BuildInstance
// needs, the in-process equivalent of the §6 solve-invocation record's
// tree/sites/padding_fraction/connect_by fields.
type BuildRequest struct {
	Title     string
	Tree      io.Reader
	Geo       io.Reader
	GeoFormat GeoFormat
	Solve     config.SolveConfig
}

// Pipeline drives the instance-construction and solve stages through one
// logger. It holds no per-solve state: every call is independent, single
// threaded, and safe to invoke concurrently from separate goroutines, per
// spec §5's "no shared mutable state across solves."
type Pipeline struct {
	logger utils.Logger
}

// New returns a Pipeline logging through logger. A nil logger falls back to
// a default info-level logger, matching the teacher's service.New.
func New(logger utils.Logger) *Pipeline {
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, os.Stderr)
	}
	return &Pipeline{logger: logger}
}

// BuildInstance runs components A (Newick parse), B (geo ingest), and C
// (tree-site binding) and assembles the §6 instance record. The returned
// Instance's Sites and LeafOrder are reordered to the tree's leaf
// total_index order, so a later Solve call can rebind with ConnectBy=""
// without repeating the original connect_by match.
func (p *Pipeline) BuildInstance(ctx context.Context, req BuildRequest) (*model.Instance, error) {
	_, span := tracer.Start(ctx, "pipeline.BuildInstance")
	defer span.End()

	treeSrc, err := io.ReadAll(req.Tree)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInputParse, "failed to read tree source", err)
	}
	p.logger.Debug("parsing newick tree (%d bytes)", len(treeSrc))
	tree, err := newick.Parse(string(treeSrc))
	if err != nil {
		return nil, err
	}

	var rawSites []geo.RawSite
	switch req.GeoFormat {
	case GeoFormatCSV:
		rawSites, err = geo.LoadCSV(req.Geo)
	case GeoFormatGeoJSON, "":
		rawSites, err = geo.LoadGeoJSON(req.Geo)
	default:
		return nil, apperrors.Newf(apperrors.CodeInputParse, "unknown geo format %q", req.GeoFormat)
	}
	if err != nil {
		return nil, err
	}
	p.logger.Debug("loaded %d raw sites", len(rawSites))

	pts := geo.Reproject(rawSites)
	bounds, err := geo.ComputeBounds(pts, req.Solve.PaddingFraction)
	if err != nil {
		return nil, err
	}

	boxSize := req.Solve.DrawBoxSize
	if boxSize <= 0 {
		boxSize = defaultBoxSize
	}
	sites := geo.ToDrawSpace(pts, rawSites, bounds, boxSize)

	rawProps := make([]map[string]interface{}, len(rawSites))
	for i, s := range rawSites {
		rawProps[i] = s.Props
	}

	tm, err := treemodel.Bind(tree, sites, rawProps, req.Solve.ConnectBy)
	if err != nil {
		return nil, err
	}
	p.logger.Info("bound %d leaves to %d sites", len(tm.Leaves), len(sites))

	leafOrder := make([]string, len(tm.Leaves))
	orderedSites := make([]model.Site, len(tm.Leaves))
	newickLeaves := tree.Leaves()
	for i := range tm.Leaves {
		leaf := &tm.Leaves[i]
		orderedSites[i] = sites[leaf.SiteIdx]
		leafOrder[i] = newickLeaves[i].Label
	}

	width := bounds.PaddedMaxX - bounds.PaddedMinX
	height := bounds.PaddedMaxY - bounds.PaddedMinY
	span := width
	if height > span {
		span = height
	}
	if span <= 0 {
		span = 1
	}
	scale := boxSize / span

	return &model.Instance{
		Title:              req.Title,
		Tree:               string(treeSrc),
		Sites:              orderedSites,
		NumLeaves:          len(tm.Leaves),
		MaxCumBranchLength: tree.MaxCumBranchLength,
		MercatorMinX:       bounds.MinX,
		MercatorMaxX:       bounds.MaxX,
		MercatorMinY:       bounds.MinY,
		MercatorMaxY:       bounds.MaxY,
		LeftCoord:          0,
		TopCoord:           0,
		MapWidth:           width * scale,
		MapHeight:          height * scale,
		LeafOrder:          leafOrder,
	}, nil
}

// SolveConfig holds the geometry/solver parameters Solve needs beyond what
// is already recorded on the Instance.
type SolveConfig struct {
	LeaderType     string // "s" or "po"
	PoGap          float64
	SolverBackend  string // "branch_and_bound" or "enumerate"
	TimeoutSeconds int
}

// Solve runs components D (geometry oracle setup), E (ILP build), F
// (solver adapt), and G (layout realize) against inst, in sequence, per
// spec §5's single-threaded solve pass: one *ilp.Model and one
// solver.Oracle per call, no goroutines, no shared state across calls.
func (p *Pipeline) Solve(ctx context.Context, inst *model.Instance, cfg SolveConfig) (*model.Solution, error) {
	ctx, span := tracer.Start(ctx, "pipeline.Solve")
	defer span.End()

	style := geometry.LeaderStyle(cfg.LeaderType)
	if style != geometry.StyleStraight && style != geometry.StylePolyOrtho {
		return nil, apperrors.Newf(apperrors.CodeConfigInvalid, "unknown leader type %q", cfg.LeaderType)
	}

	tree, err := newick.Parse(inst.Tree)
	if err != nil {
		return nil, err
	}
	tm, err := treemodel.Bind(tree, inst.Sites, nil, "")
	if err != nil {
		return nil, err
	}

	top := geometry.TopLine{
		Start: orb.Point{0, 0},
		End:   orb.Point{float64(len(inst.Sites) - 1), 0},
	}
	pairs := ilp.ClassifyPairs(tm, inst.Sites, top, style, cfg.PoGap)
	m := ilp.Build(tm, pairs)
	p.logger.Info("built ILP model: %d internals, %d fixed, %d intersecting, %d horizontal pairs",
		m.NumInternals, len(m.FixedPairs), len(m.IntersectingPairs), len(m.HorizontalPairs))

	var oracle solver.Oracle
	switch cfg.SolverBackend {
	case "enumerate":
		oracle = solver.NewEnumerate()
	case "branch_and_bound", "":
		oracle = solver.NewBranchAndBound()
	default:
		return nil, apperrors.Newf(apperrors.CodeConfigInvalid, "unknown solver backend %q", cfg.SolverBackend)
	}

	solveCtx := ctx
	if cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, time.Duration(cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	ad := solver.NewAdapter(oracle)
	turns, objective, err := ad.Solve(solveCtx, m)
	if err != nil {
		p.logger.Warn("solver failed, falling back to null solution: %v", err)
		sol := layout.NullSolution(tm, style)
		return &sol, err
	}

	sol := layout.Realize(tm, turns, objective, style)
	return &sol, nil
}
