package catalog

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalwatch/freqscan-cli/internal/faults"
	"github.com/signalwatch/freqscan-cli/internal/region"
	"github.com/signalwatch/freqscan-cli/pkg/radioref"
)

type stubRPC struct {
	responses map[string]string
	errs      map[string]error
}

func (s *stubRPC) Call(_ context.Context, op string, _ radioref.Credentials, _ string) (string, error) {
	if err := s.errs[op]; err != nil {
		return "", err
	}
	return s.responses[op], nil
}

const countyMeta = `<r>
<cats><cName>Public Safety</cName>
  <subcats><scid>100</scid><scName>Police Dispatch</scName></subcats>
  <subcats><scid>101</scid><scName>Fire Dispatch</scName></subcats>
</cats>
<cats><cName>Local Government</cName>
  <subcats><scid>102</scid><scName>Road Crews</scName></subcats>
</cats>
<trsList><sid>500</sid><sName>Utah UCAN</sName></trsList>
</r>`

const stateMeta = `<r>
<cats><cName>Statewide</cName>
  <subcats><scid>900</scid><scName>Highway Patrol</scName></subcats>
</cats>
<trsList><sid>600</sid><sName>State Interop</sName></trsList>
</r>`

func testRegion() *region.RegionInfo {
	return &region.RegionInfo{CountyID: "2725", CountyName: "Washington", StateID: "44", State: "UT"}
}

func TestEnumerate(t *testing.T) {
	t.Parallel()

	rpc := &stubRPC{responses: map[string]string{
		radioref.OpGetCountyInfo: countyMeta,
		radioref.OpGetStateInfo:  stateMeta,
	}}

	cat, err := NewEnumerator(rpc).Enumerate(context.Background(), testRegion(), radioref.Credentials{})
	require.NoError(t, err)

	require.Len(t, cat.Subcats, 4)
	assert.Equal(t, Subcat{ID: "100", Name: "Police Dispatch", Parent: "Public Safety"}, cat.Subcats[0])
	assert.Equal(t, Subcat{ID: "102", Name: "Road Crews", Parent: "Local Government"}, cat.Subcats[2])
	// County subcats sort before state subcats.
	assert.Equal(t, "900", cat.Subcats[3].ID)

	require.Len(t, cat.Systems, 2)
	assert.Equal(t, TrunkedRef{ID: "500", Name: "Utah UCAN"}, cat.Systems[0])
	assert.Equal(t, TrunkedRef{ID: "600", Name: "State Interop"}, cat.Systems[1])
}

func TestEnumerateStateFailureIsAbsorbed(t *testing.T) {
	t.Parallel()

	rpc := &stubRPC{
		responses: map[string]string{radioref.OpGetCountyInfo: countyMeta},
		errs:      map[string]error{radioref.OpGetStateInfo: &faults.TransportError{Op: "radioref: call getStateInfo", StatusCode: 500}},
	}

	cat, err := NewEnumerator(rpc).Enumerate(context.Background(), testRegion(), radioref.Credentials{})
	require.NoError(t, err)
	assert.Len(t, cat.Subcats, 3)
	assert.Len(t, cat.Systems, 1)
}

func TestEnumerateCountyFailureIsFatal(t *testing.T) {
	t.Parallel()

	rpc := &stubRPC{
		errs: map[string]error{radioref.OpGetCountyInfo: &faults.TransportError{Op: "radioref: call getCountyInfo", StatusCode: 503}},
	}

	_, err := NewEnumerator(rpc).Enumerate(context.Background(), testRegion(), radioref.Credentials{})
	require.Error(t, err)
	assert.True(t, faults.IsTransport(err))
}

func TestEnumerateSkipsStateWithoutID(t *testing.T) {
	t.Parallel()

	rpc := &stubRPC{responses: map[string]string{radioref.OpGetCountyInfo: countyMeta}}
	info := testRegion()
	info.StateID = ""

	cat, err := NewEnumerator(rpc).Enumerate(context.Background(), info, radioref.Credentials{})
	require.NoError(t, err)
	assert.Len(t, cat.Subcats, 3)
}

func TestEnumerateCaps(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("<r><cats><cName>Bulk</cName>")
	for i := 0; i < maxSubcats+20; i++ {
		fmt.Fprintf(&sb, "<subcats><scid>%d</scid><scName>Subcat %d</scName></subcats>", i, i)
	}
	sb.WriteString("</cats>")
	for i := 0; i < maxSystems+10; i++ {
		fmt.Fprintf(&sb, "<trsList><sid>%d</sid><sName>System %d</sName></trsList>", i, i)
	}
	sb.WriteString("</r>")

	rpc := &stubRPC{responses: map[string]string{
		radioref.OpGetCountyInfo: sb.String(),
		radioref.OpGetStateInfo:  stateMeta,
	}}

	cat, err := NewEnumerator(rpc).Enumerate(context.Background(), testRegion(), radioref.Credentials{})
	require.NoError(t, err)

	assert.Len(t, cat.Subcats, maxSubcats)
	assert.Len(t, cat.Systems, maxSystems)
	// County items filled the cap before any state item was considered.
	assert.Equal(t, "0", cat.Subcats[0].ID)
	for _, sc := range cat.Subcats {
		assert.NotEqual(t, "900", sc.ID)
	}
}
