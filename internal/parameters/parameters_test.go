package parameters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromConfigString(t *testing.T) {
	params := NewFromConfigString("seed=7, players=3,render,,expr=a=b")
	assert.Equal(t, Params{"seed": "7", "players": "3", "render": "", "expr": "a=b"}, params)
	assert.Empty(t, NewFromConfigString(""))
}

func TestGetParamOr(t *testing.T) {
	params := NewFromConfigString("seed=7,players=3,render,ratio=0.5,name=easy,big=18446744073709551615")

	seed, err := GetParamOr(params, "seed", uint32(0))
	require.NoError(t, err)
	assert.Equal(t, uint32(7), seed)

	players, err := GetParamOr(params, "players", uint8(4))
	require.NoError(t, err)
	assert.Equal(t, uint8(3), players)

	render, err := GetParamOr(params, "render", false)
	require.NoError(t, err)
	assert.True(t, render)

	ratio, err := GetParamOr(params, "ratio", float32(1))
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), ratio)

	big, err := GetParamOr(params, "big", uint64(0))
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551615), big)

	missing, err := GetParamOr(params, "threads", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, missing)

	_, err = GetParamOr(params, "name", 0)
	assert.Error(t, err)
	_, err = GetParamOr(Params{"players": "300"}, "players", uint8(0))
	assert.Error(t, err)
	_, err = GetParamOr(Params{"render": "maybe"}, "render", false)
	assert.Error(t, err)
}

func TestPopParamOrAndCheckAllUsed(t *testing.T) {
	params := NewFromConfigString("threads=4,pin,typo=1")
	threads, err := PopParamOr(params, "threads", 0)
	require.NoError(t, err)
	assert.Equal(t, 4, threads)
	pin, err := PopParamOr(params, "pin", false)
	require.NoError(t, err)
	assert.True(t, pin)

	err = CheckAllUsed(params, "runner")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "typo")

	delete(params, "typo")
	assert.NoError(t, CheckAllUsed(params, "runner"))
}
