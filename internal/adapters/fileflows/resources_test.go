package fileflows

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeJSON(t *testing.T, body string) interface{} {
	t.Helper()
	var v interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func TestNormalizeKeys(t *testing.T) {
	raw := decodeJSON(t, `{"uid":"a","name":"Movies","libraryFile":{"name":"x.mkv"},"items":[{"enabled":true}]}`)
	rec, ok := Normalize(raw).(Record)
	require.True(t, ok)

	assert.Equal(t, "a", rec.String("Uid"))
	assert.Equal(t, "Movies", rec.String("Name"))
	assert.Equal(t, "x.mkv", rec.Record("LibraryFile").String("Name"))
	require.Len(t, rec.List("Items"), 1)
	assert.True(t, rec.List("Items")[0].Bool("Enabled"))
	assert.False(t, rec.Has("uid"))
}

func TestNormalizePrefersCapitalizedKey(t *testing.T) {
	for i := 0; i < 20; i++ {
		rec := Normalize(map[string]interface{}{"name": "lower", "Name": "upper"}).(Record)
		assert.Equal(t, "upper", rec.String("Name"))
		assert.Len(t, rec, 1)
	}
}

func TestRecordAccessorsDegrade(t *testing.T) {
	rec := Record{"Count": "12", "Ratio": 0.5, "Flag": 1.0, "Object": []interface{}{1}}

	assert.Equal(t, 12, rec.Int("Count"))
	assert.Equal(t, 0.5, rec.Float("Ratio"))
	assert.True(t, rec.Bool("Flag"))
	assert.Equal(t, 0, rec.Int("Missing"))
	assert.Equal(t, "", rec.String("Missing"))
	assert.Equal(t, Record{}, rec.Record("Object"))
	assert.Empty(t, rec.List("Count"))
}

func TestRecordCloneIsDeep(t *testing.T) {
	orig := Record{"Nested": Record{"Value": 1}, "List": []interface{}{map[string]interface{}{"A": 1}}}
	clone := orig.Clone()

	clone.Record("Nested")["Value"] = 2
	clone["List"].([]interface{})[0].(Record)["A"] = 2

	assert.Equal(t, 1, orig.Record("Nested")["Value"])
	assert.Equal(t, 1, orig["List"].([]interface{})[0].(map[string]interface{})["A"])
}

func TestDecodeDefaults(t *testing.T) {
	for _, r := range AllResources() {
		value, err := r.Decode(nil)
		require.NoError(t, err)
		assert.Equal(t, r.Default(), value, r)
	}
	assert.Equal(t, UnknownVersion, ResourceVersion.Default())
	assert.Equal(t, false, ResourceUpdateAvailable.Default())
	assert.Equal(t, []Record{}, ResourceNodes.Default())
	assert.Equal(t, Record{}, ResourceStatus.Default())
}

func TestDecodeShapes(t *testing.T) {
	tests := []struct {
		name     string
		resource Resource
		body     string
		want     interface{}
	}{
		{"version string", ResourceVersion, `"24.08.1"`, "24.08.1"},
		{"version object", ResourceVersion, `{"version":"25.1"}`, "25.1"},
		{"version empty", ResourceVersion, `""`, UnknownVersion},
		{"update flag", ResourceUpdateAvailable, `true`, true},
		{"update object", ResourceUpdateAvailable, `{"UpdateAvailable":true}`, true},
		{"gpu object", ResourceGPU, `{"gpuUsage":40}`, Record{"GpuUsage": float64(40)}},
		{"gpu list", ResourceGPU, `[{"GpuUsage":10},{"GpuUsage":20}]`, Record{"GpuUsage": float64(10)}},
		{"gpu empty list", ResourceGPU, `[]`, Record{}},
		{"status counts", ResourceLibraryFileStatus, `{"unprocessed":4}`, Record{"Unprocessed": float64(4)}},
		{
			"status list",
			ResourceLibraryFileStatus,
			`[{"status":"Unprocessed","count":4},{"Name":"Processing","Count":1},{"Count":9}]`,
			Record{"Unprocessed": int64(4), "Processing": int64(1)},
		},
		{"nodes", ResourceNodes, `[{"uid":"n1"},7]`, []Record{{"Uid": "n1"}}},
		{
			"shrinkage keyed by library",
			ResourceShrinkage,
			`{"tv":{"originalSize":10,"finalSize":5},"movies":{"Library":"Films","OriginalSize":3,"FinalSize":1}}`,
			[]Record{
				{"Library": "Films", "OriginalSize": float64(3), "FinalSize": float64(1)},
				{"Library": "tv", "OriginalSize": float64(10), "FinalSize": float64(5)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.resource.Decode(decodeJSON(t, tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeShapeMismatchIsProtocolFailure(t *testing.T) {
	tests := []struct {
		resource Resource
		raw      interface{}
	}{
		{ResourceNodes, map[string]interface{}{"Uid": "x"}},
		{ResourceStatus, []interface{}{}},
		{ResourceStatus, "<html>"},
		{ResourceUpdateAvailable, "maybe"},
		{ResourceGPU, float64(1)},
	}
	for _, tt := range tests {
		_, err := tt.resource.Decode(tt.raw)
		require.Error(t, err, tt.resource)
		assert.True(t, IsProtocolError(err), tt.resource)
	}
}

func TestTypedViews(t *testing.T) {
	list, err := ResourceNodes.Decode(decodeJSON(t, `[
		{"uid":"n1","name":"Main","enabled":true,"flowRunners":2,"address":"10.0.0.2"},
		{"Uid":"n2","Name":"Aux","Enabled":"false","FlowRunners":"3"},
		{"Uid":"n3","FlowRunners":{"bad":1}}
	]`))
	require.NoError(t, err)

	nodes := Nodes(list.([]Record))
	require.Len(t, nodes, 3)
	assert.Equal(t, Node{Uid: "n1", Name: "Main", Enabled: true, FlowRunners: 2, Extra: map[string]interface{}{"Address": "10.0.0.2"}}, nodes[0])
	assert.False(t, nodes[1].Enabled)
	assert.Equal(t, 3, nodes[1].FlowRunners)
	assert.Equal(t, "n3", nodes[2].Uid)
	assert.Equal(t, 0, nodes[2].FlowRunners)
}

func TestWorkerFileName(t *testing.T) {
	workers := Workers([]Record{
		{"CurrentFile": "/media/a.mkv"},
		{"LibraryFile": Record{"Name": "b.mkv"}},
		{},
	})
	assert.Equal(t, "/media/a.mkv", workers[0].FileName())
	assert.Equal(t, "b.mkv", workers[1].FileName())
	assert.Equal(t, "", workers[2].FileName())
}
