package gecko

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMasterStateDefaults(t *testing.T) {
	ms := NewMasterState(48000, 60)
	assert.Equal(t, float32(1), ms.MasterVolume())
	assert.False(t, ms.BypassAll())
	assert.True(t, ms.SoftClipEnabled())
	assert.Empty(t, ms.CapturedApps())
}

func TestMasterStateSetMasterBandGainBumpsVersion(t *testing.T) {
	ms := NewMasterState(48000, 60)
	v0 := ms.MasterEqVersion()
	require.NoError(t, ms.SetMasterBandGain(2, 6))
	assert.Greater(t, ms.MasterEqVersion(), v0)
	assert.Equal(t, float32(6), ms.MasterBandGain(2))
}

func TestMasterStateSetMasterBandGainInvalidIndex(t *testing.T) {
	ms := NewMasterState(48000, 60)
	assert.ErrorIs(t, ms.SetMasterBandGain(-1, 0), ErrInvalidBand)
	assert.ErrorIs(t, ms.SetMasterBandGain(NumBands, 0), ErrInvalidBand)
}

func TestMasterStateCapturedAppsTracksMembershipAndVersion(t *testing.T) {
	ms := NewMasterState(48000, 60)
	v0 := ms.CapturedAppsVersion()

	assert.True(t, ms.AddCapturedApp("app-a"))
	assert.False(t, ms.AddCapturedApp("app-a"), "re-adding an already-captured app is a no-op")
	assert.Greater(t, ms.CapturedAppsVersion(), v0)
	assert.Contains(t, ms.CapturedApps(), AppKey("app-a"))

	v1 := ms.CapturedAppsVersion()
	assert.True(t, ms.RemoveCapturedApp("app-a"))
	assert.Greater(t, ms.CapturedAppsVersion(), v1)
	assert.NotContains(t, ms.CapturedApps(), AppKey("app-a"))
}

func TestMasterStatePerAppParamsSurviveAcrossSharedForCalls(t *testing.T) {
	ms := NewMasterState(48000, 60)
	key := AppKey("app-b")

	require.NoError(t, ms.SetAppBandGain(key, 0, 9))
	ms.SetAppVolume(key, 0.5)
	ms.SetAppBypass(key, true)

	assert.Equal(t, float32(9), ms.AppEqGains(key)[0])
	assert.Equal(t, float32(0.5), ms.AppVolume(key))
	assert.True(t, ms.AppBypass(key))

	// A previously-untouched key gets defaults, not another app's values.
	other := AppKey("app-c")
	assert.Equal(t, float32(1), ms.AppVolume(other))
	assert.False(t, ms.AppBypass(other))
}

func TestMasterStateCountersAccumulate(t *testing.T) {
	ms := NewMasterState(48000, 60)
	ms.RecordUnderrun()
	ms.RecordUnderrun()
	ms.RecordOverflow()
	underruns, overflows := ms.Counters()
	assert.Equal(t, uint64(2), underruns)
	assert.Equal(t, uint64(1), overflows)
}
