package cmd

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/hlsub/heyloyalty"
	"github.com/s0up4200/hlsub/heyloyalty/hltest"
	"github.com/s0up4200/hlsub/subscription"
)

// useTestServer points the command globals at a fake Heyloyalty API and
// captures the output of subscribe and member
func useTestServer(t *testing.T) (*hltest.Server, *bytes.Buffer) {
	t.Helper()

	srv := hltest.NewServer()
	t.Cleanup(srv.Close)

	client, err := heyloyalty.NewClient("key", "secret", zerolog.Nop(), heyloyalty.WithBaseURL(srv.BaseURL()))
	require.NoError(t, err)

	prevClient, prevService := hlClient, service
	prevDryRun, prevName, prevFields, prevOutput := dryRun, memberName, memberFields, memberOutput

	hlClient = client
	service = subscription.NewService(client, zerolog.Nop())

	var buf bytes.Buffer
	subscribeCmd.SetOut(&buf)
	memberCmd.SetOut(&buf)

	t.Cleanup(func() {
		hlClient, service = prevClient, prevService
		dryRun, memberName, memberFields, memberOutput = prevDryRun, prevName, prevFields, prevOutput
		subscribeCmd.SetOut(nil)
		memberCmd.SetOut(nil)
	})

	return srv, &buf
}

func TestRunSubscribe_DryRun(t *testing.T) {
	t.Run("new member", func(t *testing.T) {
		srv, out := useTestServer(t)
		dryRun = true
		memberName = "Ann"
		memberFields = []string{"interests="}

		require.NoError(t, runSubscribe(subscribeCmd, []string{"12", "ann@example.com"}))

		assert.Equal(t, "[DRY RUN] Would create ann@example.com on list 12 with:\n"+
			"  email=ann%40example.com&firstname=Ann&interests%5B%5D=\n", out.String())
		assert.Equal(t, 0, srv.Count(http.MethodPost, "/lists/12/members"))
	})

	t.Run("existing member", func(t *testing.T) {
		srv, out := useTestServer(t)
		id := srv.AddMember(12, map[string]any{"email": "ann@example.com"})
		dryRun = true
		memberName = "Ann"
		memberFields = []string{"city=Aarhus"}

		require.NoError(t, runSubscribe(subscribeCmd, []string{"12", "ann@example.com"}))

		assert.Equal(t, "[DRY RUN] Would update member "+id+" on list 12 with:\n  city=Aarhus\n", out.String())
		assert.Equal(t, 0, srv.Count(http.MethodPatch, "/lists/12/members/"+id))
	})
}

func TestRunSubscribe(t *testing.T) {
	t.Run("creates member", func(t *testing.T) {
		srv, out := useTestServer(t)
		dryRun = false
		memberName = "Ann"
		memberFields = nil

		require.NoError(t, runSubscribe(subscribeCmd, []string{"12", "ann@example.com"}))

		stored := srv.Member(12, "ann@example.com")
		require.NotNil(t, stored)
		assert.Equal(t, "Ann", stored["firstname"])
		assert.Equal(t, "✓ Subscribed ann@example.com to list 12 (member "+stored["id"].(string)+")\n", out.String())
	})

	t.Run("updates member", func(t *testing.T) {
		srv, out := useTestServer(t)
		id := srv.AddMember(12, map[string]any{"email": "ann@example.com"})
		dryRun = false
		memberFields = []string{"city=Aarhus"}

		require.NoError(t, runSubscribe(subscribeCmd, []string{"12", "ann@example.com"}))

		assert.Equal(t, "✓ Updated member "+id+" on list 12\n", out.String())
		assert.Equal(t, "Aarhus", srv.Member(12, "ann@example.com")["city"])
	})

	t.Run("invalid field", func(t *testing.T) {
		_, _ = useTestServer(t)
		memberFields = []string{"novalue"}

		err := runSubscribe(subscribeCmd, []string{"12", "ann@example.com"})
		assert.ErrorContains(t, err, "expected name=value")
	})
}

func TestRunMember(t *testing.T) {
	srv, out := useTestServer(t)
	srv.AddMember(12, map[string]any{"id": "m9", "email": "ann@example.com", "firstname": "Ann"})
	memberOutput = "json"

	require.NoError(t, runMember(memberCmd, []string{"12", "bob@example.com"}))
	assert.Equal(t, "bob@example.com is not on list 12.\n", out.String())

	out.Reset()
	require.NoError(t, runMember(memberCmd, []string{"12", "ann@example.com"}))
	assert.JSONEq(t, `{"id":"m9","email":"ann@example.com","firstname":"Ann","lastname":""}`, out.String())
}
