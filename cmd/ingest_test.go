package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basedlsg/Nemo-Time-sub000/internal/model"
)

func TestCollectSources_ArgsOnly(t *testing.T) {
	hints := model.Hints{Province: "gd"}
	got, err := collectSources(context.Background(), []string{"a.txt", "https://nea.gov.cn/1.html"}, "", hints)
	require.NoError(t, err)
	assert.Equal(t, []model.Source{
		{Location: "a.txt", Hints: hints},
		{Location: "https://nea.gov.cn/1.html", Hints: hints},
	}, got)
}

func TestCollectSources_ListFillsHints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.csv")
	require.NoError(t, os.WriteFile(path, []byte("url,province,asset\nhttps://fgw.sd.gov.cn/n.html,sd,\nhttps://nea.gov.cn/2.html,,coal\n"), 0o644))

	got, err := collectSources(context.Background(), nil, path, model.Hints{Province: "nm", Asset: "wind"})
	require.NoError(t, err)
	assert.Equal(t, []model.Source{
		{Location: "https://fgw.sd.gov.cn/n.html", Hints: model.Hints{Province: "sd", Asset: "wind"}},
		{Location: "https://nea.gov.cn/2.html", Hints: model.Hints{Province: "nm", Asset: "coal"}},
	}, got)
}

func TestCollectSources_BadList(t *testing.T) {
	_, err := collectSources(context.Background(), nil, "sources.json", model.Hints{})
	assert.Error(t, err)
}
