package scan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	vigilerrors "github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/logger"
	"github.com/rileyhilliard/vigil/internal/risk"
	"github.com/rileyhilliard/vigil/internal/telemetry"
	"github.com/rileyhilliard/vigil/pkg/provider"
	providertest "github.com/rileyhilliard/vigil/pkg/provider/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wait(t *testing.T, ch <-chan Job) Job {
	t.Helper()
	select {
	case j := <-ch:
		return j
	case <-time.After(2 * time.Second):
		t.Fatal("scan did not finish")
		return Job{}
	}
}

// gatedFullScan blocks each full scan until release is closed.
func gatedFullScan(m *providertest.MockProvider) (entered <-chan struct{}, release chan struct{}) {
	in := make(chan struct{}, 8)
	release = make(chan struct{})
	m.FullScanFunc = func(ctx context.Context) (*provider.FullScanResult, error) {
		in <- struct{}{}
		<-release
		return &provider.FullScanResult{}, nil
	}
	return in, release
}

type countingObserver struct {
	mu       sync.Mutex
	started  int
	finished []Job
	rejected []string
}

func (c *countingObserver) ScanStarted(Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started++
}

func (c *countingObserver) ScanFinished(j Job) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finished = append(c.finished, j)
}

func (c *countingObserver) ScanRejected(_ Kind, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejected = append(c.rejected, code)
}

func TestResult_InitiallyIdle(t *testing.T) {
	o := New(providertest.NewMockProvider(), nil, nil)
	defer o.Close()

	for _, k := range []Kind{Full, Cryptojacking, File} {
		j, err := o.Result(k)
		require.NoError(t, err)
		assert.Equal(t, StateIdle, j.State)
		assert.False(t, j.HasReport())
	}

	_, err := o.Result("quick")
	assert.True(t, errors.Is(err, vigilerrors.InvalidInput))
}

func TestInvoke_FullScanSucceeds(t *testing.T) {
	m := providertest.NewMockProvider()
	m.ProcessList = telemetry.ProcessList{{PID: 9, Name: "xmrig", CPUPercent: 95, Suspicious: true}}
	m.ConnectionList = telemetry.ConnectionList{
		{LocalAddr: "a", RemoteAddr: "b:3333", Suspicious: true},
		{LocalAddr: "a", RemoteAddr: "c:4444", Suspicious: true},
	}
	o := New(m, nil, logger.NewBufferLogger())
	defer o.Close()

	done, err := o.Invoke(Full, nil)
	require.NoError(t, err)
	j := wait(t, done)

	assert.Equal(t, StateSucceeded, j.State)
	require.True(t, j.HasReport())
	assert.Equal(t, 3, j.Report.TotalFlags)
	assert.Equal(t, risk.Danger, j.Report.RiskLevel)
	assert.NotEmpty(t, j.ID)
	assert.Equal(t, 1, m.Calls(providertest.MethodFullScan))

	current, _ := o.Result(Full)
	assert.Equal(t, j, current)
}

func TestInvoke_AlreadyRunning(t *testing.T) {
	m := providertest.NewMockProvider()
	entered, release := gatedFullScan(m)
	obs := &countingObserver{}
	o := New(m, nil, nil)
	o.SetObserver(obs)
	defer o.Close()

	done, err := o.Invoke(Full, nil)
	require.NoError(t, err)
	<-entered

	before, _ := o.Result(Full)
	require.Equal(t, StateRunning, before.State)

	_, err = o.Invoke(Full, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, vigilerrors.AlreadyRunning))
	assert.True(t, vigilerrors.IsCode(err, vigilerrors.ErrAlreadyRunning))

	after, _ := o.Result(Full)
	assert.Equal(t, before, after, "running job must be untouched")
	assert.Equal(t, 1, m.Calls(providertest.MethodFullScan), "no second provider call")

	close(release)
	j := wait(t, done)
	assert.Equal(t, StateSucceeded, j.State)
	assert.Equal(t, before.ID, j.ID)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, 1, obs.started)
	assert.Equal(t, []string{vigilerrors.ErrAlreadyRunning}, obs.rejected)
}

func TestInvoke_KindsRunIndependently(t *testing.T) {
	m := providertest.NewMockProvider()
	entered, release := gatedFullScan(m)
	o := New(m, nil, nil)
	defer o.Close()

	fullDone, err := o.Invoke(Full, nil)
	require.NoError(t, err)
	<-entered

	cjDone, err := o.Invoke(Cryptojacking, nil)
	require.NoError(t, err, "a running full scan must not block other kinds")
	cj := wait(t, cjDone)
	assert.Equal(t, StateSucceeded, cj.State)

	close(release)
	wait(t, fullDone)
}

func TestFailedRerunKeepsReport(t *testing.T) {
	m := providertest.NewMockProvider()
	o := New(m, nil, nil)
	defer o.Close()

	first := wait(t, mustInvoke(t, o, Cryptojacking, nil))
	require.Equal(t, StateSucceeded, first.State)
	require.True(t, first.HasReport())

	m.CryptojackingFunc = func(ctx context.Context) (*provider.CryptojackingResult, error) {
		return nil, vigilerrors.New(vigilerrors.ErrProviderUnavailable, "HTTP 500 from /api/cryptojacking-check: boom", "")
	}
	second := wait(t, mustInvoke(t, o, Cryptojacking, nil))

	assert.Equal(t, StateFailed, second.State)
	assert.Equal(t, "HTTP 500 from /api/cryptojacking-check: boom", second.Error)
	assert.Same(t, first.Report, second.Report, "prior report stays visible")
	assert.NotEqual(t, first.ID, second.ID)

	m.CryptojackingFunc = nil
	third := wait(t, mustInvoke(t, o, Cryptojacking, nil))
	assert.Equal(t, StateSucceeded, third.State)
	assert.Empty(t, third.Error)
	assert.NotSame(t, first.Report, third.Report, "a successful re-run replaces the report")
}

func TestFailureWithoutPriorReport(t *testing.T) {
	m := providertest.NewMockProvider()
	m.FullScanFunc = func(ctx context.Context) (*provider.FullScanResult, error) {
		return nil, vigilerrors.Wrap(errors.New("connection refused"), "Cannot reach provider at 127.0.0.1:5000")
	}
	o := New(m, nil, nil)
	defer o.Close()

	j := wait(t, mustInvoke(t, o, Full, nil))
	assert.Equal(t, StateFailed, j.State)
	assert.False(t, j.HasReport())
	assert.Contains(t, j.Error, "connection refused")
}

func TestFileScan_RequiresInput(t *testing.T) {
	tests := []struct {
		name  string
		input *FileInput
	}{
		{"nil input", nil},
		{"empty name", &FileInput{Content: []byte("data")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := providertest.NewMockProvider()
			o := New(m, nil, nil)
			defer o.Close()

			done, err := o.Invoke(File, tt.input)
			assert.Nil(t, done)
			assert.True(t, errors.Is(err, vigilerrors.InvalidInput))
			assert.Equal(t, 0, m.TotalCalls())

			j, _ := o.Result(File)
			assert.Equal(t, StateIdle, j.State)
		})
	}
}

func TestFileScan(t *testing.T) {
	m := providertest.NewMockProvider()
	var gotName string
	var gotContent []byte
	m.ScanFileFunc = func(ctx context.Context, name string, content []byte) (*provider.FileScanResult, error) {
		gotName, gotContent = name, content
		return &provider.FileScanResult{
			Filename: name, SizeBytes: int64(len(content)), RiskLevel: "HIGH",
			Verdict: "Suspicious", KeywordsMatched: []string{"powershell"},
		}, nil
	}
	o := New(m, nil, nil)
	defer o.Close()

	j := wait(t, mustInvoke(t, o, File, &FileInput{Name: "run.ps1", Content: []byte("powershell -enc")}))

	assert.Equal(t, "run.ps1", gotName)
	assert.Equal(t, "powershell -enc", string(gotContent))
	require.True(t, j.HasReport())
	assert.Len(t, j.Report.Findings, 1)
	assert.Equal(t, risk.Danger, j.Report.RiskLevel)
	assert.True(t, j.Report.RiskAsserted)
}

func TestInvoke_UnknownKind(t *testing.T) {
	o := New(providertest.NewMockProvider(), nil, nil)
	defer o.Close()

	_, err := o.Invoke("quick", nil)
	assert.True(t, vigilerrors.IsCode(err, vigilerrors.ErrInvalidInput))
}

func TestJobLookupByID(t *testing.T) {
	o := New(providertest.NewMockProvider(), nil, nil)
	defer o.Close()

	first := wait(t, mustInvoke(t, o, Full, nil))
	second := wait(t, mustInvoke(t, o, Full, nil))

	got, ok := o.Job(first.ID)
	require.True(t, ok)
	assert.Equal(t, first, got)

	got, ok = o.Job(second.ID)
	require.True(t, ok)
	assert.Equal(t, second.ID, got.ID)

	_, ok = o.Job("missing")
	assert.False(t, ok)
}

func TestScanTimeout(t *testing.T) {
	m := providertest.NewMockProvider()
	m.FullScanFunc = func(ctx context.Context) (*provider.FullScanResult, error) {
		<-ctx.Done()
		return nil, vigilerrors.WrapWithCode(ctx.Err(), vigilerrors.ErrProviderUnavailable, "Full scan timed out", "")
	}
	o := New(m, nil, nil)
	o.SetTimeout(20 * time.Millisecond)
	defer o.Close()

	j := wait(t, mustInvoke(t, o, Full, nil))
	assert.Equal(t, StateFailed, j.State)
	assert.Contains(t, j.Error, "deadline exceeded")
}

func TestSave(t *testing.T) {
	m := providertest.NewMockProvider()
	entered := make(chan struct{})
	release := make(chan struct{})
	m.SaveScanFunc = func(ctx context.Context) (*provider.SaveResult, error) {
		close(entered)
		<-release
		return &provider.SaveResult{Filename: "scan_results_1.json"}, nil
	}
	o := New(m, nil, nil)
	defer o.Close()

	var res *provider.SaveResult
	var saveErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		res, saveErr = o.Save(context.Background())
	}()
	<-entered

	_, err := o.Save(context.Background())
	assert.True(t, errors.Is(err, vigilerrors.AlreadyRunning))

	close(release)
	wg.Wait()
	require.NoError(t, saveErr)
	assert.Equal(t, "scan_results_1.json", res.Filename)
	assert.Equal(t, 1, m.Calls(providertest.MethodSaveScan))
}

func TestObserverSeesFinish(t *testing.T) {
	obs := &countingObserver{}
	o := New(providertest.NewMockProvider(), nil, nil)
	o.SetObserver(obs)
	defer o.Close()

	wait(t, mustInvoke(t, o, Cryptojacking, nil))
	_, _ = o.Invoke(File, nil)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.Len(t, obs.finished, 1)
	assert.Equal(t, StateSucceeded, obs.finished[0].State)
	assert.Equal(t, []string{vigilerrors.ErrInvalidInput}, obs.rejected)
}

func mustInvoke(t *testing.T, o *Orchestrator, k Kind, in *FileInput) <-chan Job {
	t.Helper()
	done, err := o.Invoke(k, in)
	require.NoError(t, err)
	return done
}
