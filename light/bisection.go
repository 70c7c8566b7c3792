package light

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tendermint/lightcore/libs/log"
	tmmath "github.com/tendermint/lightcore/libs/math"
	"github.com/tendermint/lightcore/light/provider"
	"github.com/tendermint/lightcore/light/store"
	"github.com/tendermint/lightcore/types"
)

const (
	// 10s should cover most of the clients.
	// References:
	// - http://vancouver-webpages.com/time/web.html
	// - https://blog.codinghorror.com/keeping-time-on-the-pc/
	defaultMaxClockDrift = 10 * time.Second
)

// Option sets a parameter for the verifier.
type Option func(*Verifier)

// TrustLevel sets the fraction of the trusted validator set (in terms of
// voting power) which must sign a new header in order for us to trust it.
// Default: 2/3.
func TrustLevel(lvl tmmath.Fraction) Option {
	return func(v *Verifier) {
		v.params.TrustLevel = lvl
	}
}

// MaxClockDrift defines how much new header's time can drift into
// the future relative to the local time. Default: 10s.
func MaxClockDrift(d time.Duration) Option {
	return func(v *Verifier) {
		v.params.MaxClockDrift = d
	}
}

// WithClock replaces the system clock used for freshness checks.
func WithClock(c Clock) Option {
	return func(v *Verifier) {
		v.clock = c
	}
}

// Logger option can be used to set a logger for the verifier.
func Logger(l log.Logger) Option {
	return func(v *Verifier) {
		v.logger = l
	}
}

// WithMetrics sets the metrics the verifier reports to.
func WithMetrics(m *Metrics) Option {
	return func(v *Verifier) {
		v.metrics = m
	}
}

// Verifier extends trust from a trusted light block to a target height,
// bisecting the height range whenever a direct check is insufficient.
//
// A Verifier holds no per-session state; all of it lives in the State passed
// to each call. A Verifier may be shared by concurrent sessions as long as
// each uses its own State.
type Verifier struct {
	chainID  string
	provider provider.Provider
	params   TrustParams
	clock    Clock
	logger   log.Logger
	metrics  *Metrics
}

// NewVerifier returns a verifier for chainID fetching candidates from p.
func NewVerifier(chainID string, p provider.Provider, trustingPeriod time.Duration, options ...Option) (*Verifier, error) {
	if chainID == "" {
		return nil, errors.New("chain id is required")
	}
	if p == nil {
		return nil, errors.New("provider is required")
	}

	v := &Verifier{
		chainID:  chainID,
		provider: p,
		params: TrustParams{
			TrustLevel:     DefaultTrustLevel,
			TrustingPeriod: trustingPeriod,
			MaxClockDrift:  defaultMaxClockDrift,
		},
		clock:   SystemClock{},
		logger:  log.NewNopLogger(),
		metrics: NopMetrics(),
	}
	for _, o := range options {
		o(v)
	}

	if err := v.params.ValidateBasic(); err != nil {
		return nil, err
	}
	return v, nil
}

// ChainID returns the chain the verifier works for.
func (v *Verifier) ChainID() string { return v.chainID }

// Params returns the trust parameters in use.
func (v *Verifier) Params() TrustParams { return v.params }

type stage int

const (
	stageDirect stage = iota // check target against anchor
	stageLeft                // waiting for anchor -> mid
	stageRight               // waiting for mid -> target
)

// frame is one pending (anchor, target] range of the work stack.
type frame struct {
	anchor *types.LightBlock
	target int64
	mid    int64
	stage  stage
}

// VerifyToTarget extends trust from trusted to the block at targetHeight, see
// the package documentation for the algorithm. On success the block at
// targetHeight is returned and is Verified in the state's store.
//
// trusted must be recorded as Trusted or Verified in the state's store and
// targetHeight must be above it.
//
// Errors:
//   - ErrBisectionExhausted: trust cannot be extended between two adjacent
//     heights; the candidate is marked Failed.
//   - ErrVerificationFailed wrapping ErrInvalidHeader or ErrHeaderExpired:
//     a candidate or the anchor is unusable.
//   - ErrFetchUnavailable: the provider could not supply a height.
//   - ctx.Err() if the context is done between steps.
func (v *Verifier) VerifyToTarget(
	ctx context.Context,
	state *State,
	trusted *types.LightBlock,
	targetHeight int64,
) (*types.LightBlock, error) {
	if trusted == nil || trusted.SignedHeader == nil || trusted.Header == nil {
		return nil, errors.New("trusted light block is required")
	}
	if targetHeight <= trusted.Height {
		return nil, fmt.Errorf("target height %d must be above trusted height %d", targetHeight, trusted.Height)
	}
	status, err := state.Store().Status(trusted.Height)
	if err != nil {
		return nil, fmt.Errorf("trusted light block #%d: %w", trusted.Height, err)
	}
	if status != store.StatusTrusted && status != store.StatusVerified {
		return nil, fmt.Errorf("light block #%d is %v, expected trusted or verified", trusted.Height, status)
	}

	s := &session{
		Verifier: v,
		state:    state,
		logger:   v.logger.With("session", uuid.New().String()),
		now:      v.clock.Now(),
	}
	start := time.Now()
	s.logger.Info("verifying light block", "trustedHeight", trusted.Height, "targetHeight", targetHeight)

	lb, err := s.run(ctx, trusted, targetHeight)

	v.metrics.SessionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		v.metrics.Sessions.With("outcome", "failure").Add(1)
		s.logger.Error("verification failed", "targetHeight", targetHeight, "err", err)
		return nil, err
	}
	v.metrics.Sessions.With("outcome", "success").Add(1)
	s.logger.Info("verified light block", "height", lb.Height, "hash", lb.Hash())
	return lb, nil
}

// VerifyToHeight verifies the block at targetHeight starting from the
// closest trusted or verified block below it. If targetHeight is already
// trusted or verified, the stored block is returned without any fetch.
func (v *Verifier) VerifyToHeight(ctx context.Context, state *State, targetHeight int64) (*types.LightBlock, error) {
	if targetHeight <= 0 {
		return nil, fmt.Errorf("target height must be positive, got %d", targetHeight)
	}

	st := state.Store()
	for _, status := range []store.Status{store.StatusVerified, store.StatusTrusted} {
		lb, err := st.LightBlock(targetHeight, status)
		if err == nil {
			return lb, nil
		}
		if !errors.Is(err, store.ErrLightBlockNotFound) {
			return nil, err
		}
	}

	anchor, err := closestAnchor(st, targetHeight)
	if err != nil {
		return nil, err
	}
	return v.VerifyToTarget(ctx, state, anchor, targetHeight)
}

// closestAnchor returns the highest trusted or verified block below height.
func closestAnchor(st store.Store, height int64) (*types.LightBlock, error) {
	var anchor *types.LightBlock
	for _, status := range []store.Status{store.StatusVerified, store.StatusTrusted} {
		lb, err := st.LightBlockBefore(height, status)
		if errors.Is(err, store.ErrLightBlockNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if anchor == nil || lb.Height > anchor.Height {
			anchor = lb
		}
	}
	if anchor == nil {
		return nil, ErrNoTrustedAnchor
	}
	return anchor, nil
}

// session is one run of VerifyToTarget.
type session struct {
	*Verifier
	state  *State
	logger log.Logger
	now    time.Time
}

func (s *session) run(ctx context.Context, trusted *types.LightBlock, targetHeight int64) (*types.LightBlock, error) {
	var (
		stack = []*frame{{anchor: trusted, target: targetHeight, stage: stageDirect}}
		// block at the target of the last completed frame
		last *types.LightBlock
	)

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f := stack[len(stack)-1]
		switch f.stage {
		case stageDirect:
			candidate, justified, err := s.candidate(ctx, f.target)
			if err != nil {
				return nil, s.fail(f, err)
			}
			if justified {
				s.logger.Debug("light block already justified", "height", f.target)
				last = candidate
				stack = stack[:len(stack)-1]
				continue
			}

			s.logger.Debug("checking trust",
				"trustedHeight", f.anchor.Height, "newHeight", f.target)
			verdict, err := CheckTrust(f.anchor, candidate, s.params, s.now)
			if err != nil {
				if candidateAtFault(err, f.target) {
					if uerr := s.markFailed(candidate); uerr != nil {
						return nil, uerr
					}
				}
				return nil, s.fail(f, err)
			}

			if verdict == Sufficient {
				if err := s.state.Store().Update(candidate, store.StatusVerified); err != nil {
					return nil, err
				}
				s.metrics.VerifiedBlocks.Add(1)
				s.state.TraceBlock(f.target, f.anchor.Height)
				last = candidate
				stack = stack[:len(stack)-1]
				continue
			}

			mid := f.anchor.Height + (f.target-f.anchor.Height)/2
			if mid <= f.anchor.Height || mid >= f.target {
				if err := s.markFailed(candidate); err != nil {
					return nil, err
				}
				return nil, ErrBisectionExhausted{From: f.anchor.Height, To: f.target}
			}

			s.logger.Debug("bisecting",
				"trustedHeight", f.anchor.Height, "midHeight", mid, "newHeight", f.target)
			s.metrics.Bisections.Add(1)
			f.mid = mid
			f.stage = stageLeft
			stack = append(stack, &frame{anchor: f.anchor, target: mid, stage: stageDirect})

		case stageLeft:
			f.stage = stageRight
			stack = append(stack, &frame{anchor: last, target: f.target, stage: stageDirect})

		case stageRight:
			s.state.TraceBlock(f.target, f.mid)
			stack = stack[:len(stack)-1]
		}
	}

	return last, nil
}

// classifyFetchErr maps a provider error for height onto the verifier's
// errors. Context errors pass through untouched.
func classifyFetchErr(height int64, err error) error {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.As(err, &provider.ErrBadLightBlock{}):
		return ErrInvalidHeader{err}
	default:
		return ErrFetchUnavailable{Height: height, Reason: err}
	}
}

// candidate returns the block at height. Verified and Trusted records are
// returned with justified set. Unverified and Failed records are reused as
// cached candidates. Otherwise the block is fetched and stored Unverified.
func (s *session) candidate(ctx context.Context, height int64) (lb *types.LightBlock, justified bool, err error) {
	st := s.state.Store()

	status, err := st.Status(height)
	switch {
	case err == nil:
		lb, err = st.LightBlock(height, status)
		if err != nil {
			return nil, false, err
		}
		return lb, status == store.StatusVerified || status == store.StatusTrusted, nil
	case !errors.Is(err, store.ErrLightBlockNotFound):
		return nil, false, err
	}

	s.logger.Debug("fetching light block", "height", height, "provider", s.provider.String())
	lb, err = s.provider.LightBlock(ctx, height)
	s.metrics.Fetches.Add(1)
	if err != nil {
		return nil, false, classifyFetchErr(height, err)
	}

	if lb == nil || lb.SignedHeader == nil || lb.Header == nil {
		return nil, false, ErrInvalidHeader{fmt.Errorf("provider returned an empty light block for #%d", height)}
	}
	if lb.Height != height {
		return nil, false, ErrInvalidHeader{fmt.Errorf("provider returned light block #%d for #%d", lb.Height, height)}
	}

	if err := st.Update(lb, store.StatusUnverified); err != nil {
		return nil, false, err
	}
	return lb, false, nil
}

func (s *session) markFailed(lb *types.LightBlock) error {
	s.metrics.FailedBlocks.Add(1)
	return s.state.Store().Update(lb, store.StatusFailed)
}

// fail wraps err with the range of f. Fetch failures and context errors are
// returned as they are.
func (s *session) fail(f *frame, err error) error {
	var unavailable ErrFetchUnavailable
	if errors.As(err, &unavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return ErrVerificationFailed{From: f.anchor.Height, To: f.target, Reason: err}
}

// candidateAtFault reports whether err condemns the candidate at height
// rather than the anchor.
func candidateAtFault(err error, height int64) bool {
	var (
		invalid ErrInvalidHeader
		expired ErrHeaderExpired
	)
	switch {
	case errors.As(err, &invalid):
		return true
	case errors.As(err, &expired):
		return expired.Height == height
	default:
		return false
	}
}
