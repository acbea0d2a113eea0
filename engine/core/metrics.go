package core

const avgCount = 30

// FrameMetrics accumulates per-frame renderer statistics. Each renderer
// instance owns its own metrics so two backends never mix their numbers.
type FrameMetrics struct {
	frameAvgCounter    uint8
	msTimes            [avgCount]float64
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64

	// Totals for the frame currently being reported.
	Batches    int
	Instances  int
	DrawCalls  int
	Dropped    int
	lastFrame  FrameStats
}

// FrameStats is a snapshot of one finished frame.
type FrameStats struct {
	Batches   int
	Instances int
	DrawCalls int
	Dropped   int
}

func NewFrameMetrics() *FrameMetrics {
	return &FrameMetrics{}
}

// BeginFrame resets the per-frame counters.
func (m *FrameMetrics) BeginFrame() {
	m.Batches = 0
	m.Instances = 0
	m.DrawCalls = 0
	m.Dropped = 0
}

// EndFrame folds the elapsed frame time into the rolling averages and
// snapshots the counters.
func (m *FrameMetrics) EndFrame(frameElapsedTime float64) {
	frameMS := frameElapsedTime * 1000.0
	m.msTimes[m.frameAvgCounter] = frameMS
	if m.frameAvgCounter == avgCount-1 {
		sum := 0.0
		for i := 0; i < avgCount; i++ {
			sum += m.msTimes[i]
		}
		m.msAvg = sum / avgCount
	}
	m.frameAvgCounter++
	m.frameAvgCounter %= avgCount

	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
	}
	m.frames++

	m.lastFrame = FrameStats{
		Batches:   m.Batches,
		Instances: m.Instances,
		DrawCalls: m.DrawCalls,
		Dropped:   m.Dropped,
	}
}

func (m *FrameMetrics) FPS() float64 {
	return m.fps
}

func (m *FrameMetrics) FrameTime() float64 {
	return m.msAvg
}

// LastFrame returns the stats of the most recently completed frame.
func (m *FrameMetrics) LastFrame() FrameStats {
	return m.lastFrame
}
