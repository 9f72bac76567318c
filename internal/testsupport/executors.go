package testsupport

import (
	"context"
	"strings"
	"sync"
	"time"

	"avatarstudio/internal/pipelineconfig"
	"avatarstudio/internal/stage"
)

// Stage names accepted by StubExecutors.
const (
	StageTTS         = "tts"
	StageLipSync     = "lipsync"
	StageRenderer    = "renderer"
	StagePostProcess = "postprocess"
)

// StubExecutors is a scripted executor set. Each stage returns a small
// deterministic result unless told to fail or to block. Calls are recorded
// in order as "stage:jobID".
type StubExecutors struct {
	mu       sync.Mutex
	calls    []string
	failures map[string]error
	gates    map[string]chan struct{}
	stubborn map[string]bool
	health   map[string]stage.Health
}

// NewStubExecutors returns stubs that succeed on every stage.
func NewStubExecutors() *StubExecutors {
	return &StubExecutors{
		failures: make(map[string]error),
		gates:    make(map[string]chan struct{}),
		stubborn: make(map[string]bool),
		health:   make(map[string]stage.Health),
	}
}

// Set exposes the stubs as the executor bundle the manager drives.
func (s *StubExecutors) Set() stage.Executors {
	return stage.Executors{
		Synthesizer:   stubSynthesizer{s},
		Aligner:       stubAligner{s},
		Renderer:      stubRenderer{s},
		PostProcessor: stubPostProcessor{s},
	}
}

// Fail makes the named stage return err.
func (s *StubExecutors) Fail(name string, err error) {
	s.mu.Lock()
	s.failures[name] = err
	s.mu.Unlock()
}

// Block makes the named stage wait until the returned release func is called
// or its context ends.
func (s *StubExecutors) Block(name string) (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gates[name] = gate
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// IgnoreCancel makes a blocked stage keep waiting for release even after its
// context ends, modelling an executor that cannot stop promptly.
func (s *StubExecutors) IgnoreCancel(name string) {
	s.mu.Lock()
	s.stubborn[name] = true
	s.mu.Unlock()
}

// SetHealth overrides the health reported by the named stage.
func (s *StubExecutors) SetHealth(name string, h stage.Health) {
	s.mu.Lock()
	s.health[name] = h
	s.mu.Unlock()
}

// Calls returns the recorded stage invocations.
func (s *StubExecutors) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsFor returns the stages invoked for one job, in order.
func (s *StubExecutors) CallsFor(jobID string) []string {
	var out []string
	for _, call := range s.Calls() {
		if name, id, ok := strings.Cut(call, ":"); ok && id == jobID {
			out = append(out, name)
		}
	}
	return out
}

func (s *StubExecutors) enter(ctx context.Context, name, jobID string, progress stage.ProgressFunc) error {
	s.mu.Lock()
	s.calls = append(s.calls, name+":"+jobID)
	gate := s.gates[name]
	stubborn := s.stubborn[name]
	failure := s.failures[name]
	s.mu.Unlock()

	progress.Report(0.5)
	if gate != nil {
		if stubborn {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if failure != nil {
		return failure
	}
	progress.Report(1)
	return nil
}

func (s *StubExecutors) healthFor(name string) stage.Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.health[name]; ok {
		return h
	}
	return stage.Healthy(name)
}

type stubSynthesizer struct{ s *StubExecutors }

func (st stubSynthesizer) Synthesize(ctx context.Context, req stage.SynthesisRequest) (*stage.SpeechResult, error) {
	if err := st.s.enter(ctx, StageTTS, req.JobID, req.Progress); err != nil {
		return nil, err
	}
	seconds := pipelineconfig.EstimateSpokenSeconds(req.Text, req.TTS.Speed)
	duration := time.Duration(seconds * float64(time.Second))
	return &stage.SpeechResult{
		AudioRef: "stub://" + req.JobID + "/speech.aac",
		Phonemes: []stage.Phoneme{{Symbol: "a", Start: 0, End: duration}},
		Duration: duration,
		Quality:  0.9,
	}, nil
}

func (st stubSynthesizer) HealthCheck(context.Context) stage.Health {
	return st.s.healthFor(StageTTS)
}

type stubAligner struct{ s *StubExecutors }

func (st stubAligner) Align(ctx context.Context, req stage.AlignmentRequest) (*stage.LipSyncResult, error) {
	if err := st.s.enter(ctx, StageLipSync, req.JobID, req.Progress); err != nil {
		return nil, err
	}
	return &stage.LipSyncResult{
		Keyframes:  []stage.Keyframe{{At: 0, Viseme: "rest"}, {At: req.Duration, Viseme: "rest"}},
		Confidence: 0.85,
	}, nil
}

func (st stubAligner) HealthCheck(context.Context) stage.Health {
	return st.s.healthFor(StageLipSync)
}

type stubRenderer struct{ s *StubExecutors }

func (st stubRenderer) Render(ctx context.Context, req stage.RenderRequest) (*stage.RenderResult, error) {
	if err := st.s.enter(ctx, StageRenderer, req.JobID, req.Progress); err != nil {
		return nil, err
	}
	return &stage.RenderResult{
		VideoRef:       "stub://" + req.JobID + "/avatar_video.mp4",
		ThumbnailRef:   "stub://" + req.JobID + "/avatar_video_thumb.jpg",
		FileSize:       pipelineconfig.EstimateFileSize(req.Duration, req.Rendering.Bitrate),
		FramesRendered: pipelineconfig.FrameCount(req.Duration, req.Rendering.FrameRate),
	}, nil
}

func (st stubRenderer) HealthCheck(context.Context) stage.Health {
	return st.s.healthFor(StageRenderer)
}

type stubPostProcessor struct{ s *StubExecutors }

func (st stubPostProcessor) PostProcess(ctx context.Context, req stage.PostProcessRequest) (*stage.Output, error) {
	if err := st.s.enter(ctx, StagePostProcess, req.JobID, req.Progress); err != nil {
		return nil, err
	}
	out := req.Output
	out.Metadata.Optimized = true
	return &out, nil
}

func (st stubPostProcessor) HealthCheck(context.Context) stage.Health {
	return st.s.healthFor(StagePostProcess)
}
