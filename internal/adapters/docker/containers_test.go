package docker

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih/lighthouse/internal/core/domain"
)

func TestContainerService_List_MapsSummaries(t *testing.T) {
	engine := newFakeEngine()
	engine.handle("GET /v1.41/containers/json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("all"))
		writeJSON(w, http.StatusOK, `[
			{"Id":"abc","Names":["/web"],"State":"running","Status":"Up 2 minutes",
			 "Ports":[{"IP":"0.0.0.0","PrivatePort":80,"PublicPort":8080,"Type":"tcp"},{"PrivatePort":443,"Type":"tcp"}]},
			{"Id":"def","Names":["/db","/web/db"],"State":"hibernating","Status":"","Ports":[]},
			{"Id":"ghi"}
		]`)
	})

	svc := NewContainerService(newConnectionForEngine(t, engine))
	containers, err := svc.List(context.Background())

	require.NoError(t, err)
	require.Len(t, containers, 3)

	web := containers[0]
	assert.Equal(t, "abc", web.ID)
	require.NotNil(t, web.Name)
	assert.Equal(t, "web", *web.Name)
	require.NotNil(t, web.State)
	assert.Equal(t, domain.StateRunning, *web.State)
	require.NotNil(t, web.Status)
	assert.Equal(t, "Up 2 minutes", *web.Status)
	assert.Equal(t, []string{"0.0.0.0"}, web.Ports)

	db := containers[1]
	require.NotNil(t, db.Name)
	assert.Equal(t, "db", *db.Name)
	assert.Equal(t, domain.StateUnknown, *db.State)
	assert.Nil(t, db.Status)
	assert.NotNil(t, db.Ports)
	assert.Empty(t, db.Ports)

	bare := containers[2]
	assert.Nil(t, bare.Name)
	assert.Nil(t, bare.State)
	assert.Nil(t, bare.Status)
	assert.Nil(t, bare.Ports)
}

func TestContainerService_List_NamesNeverKeepLeadingSlash(t *testing.T) {
	engine := newFakeEngine()
	engine.handle("GET /v1.41/containers/json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[{"Id":"a","Names":["/one"]},{"Id":"b","Names":["two"]},{"Id":"c","Names":["/x/y"]}]`)
	})

	containers, err := NewContainerService(newConnectionForEngine(t, engine)).List(context.Background())

	require.NoError(t, err)
	for _, c := range containers {
		require.NotNil(t, c.Name)
		assert.False(t, strings.HasPrefix(*c.Name, "/"), "name %q keeps its slash", *c.Name)
	}
}

func TestContainerService_List_ReturnsErrorOnNon2xxResponse(t *testing.T) {
	engine := newFakeEngine()
	engine.handle("GET /v1.41/containers/json", func(w http.ResponseWriter, r *http.Request) {
		writeDaemonError(w, http.StatusInternalServerError, "internal error")
	})

	containers, err := NewContainerService(newConnectionForEngine(t, engine)).List(context.Background())

	require.Error(t, err)
	assert.Nil(t, containers)
	assert.ErrorIs(t, err, domain.ErrRuntime)
	assert.Contains(t, err.Error(), "container.list")
}

func TestContainerService_Inspect_MapsDetails(t *testing.T) {
	engine := newFakeEngine()
	engine.handle("GET /v1.41/containers/abc123/json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{
			"Id":"abc123","Created":"2024-05-01T10:00:00Z","Name":"/web",
			"State":{"Status":"exited","ExitCode":137},
			"Config":{"Image":"nginx:latest","Env":["PATH=/usr/bin","MODE=prod"],"Cmd":["nginx","-g","daemon off;"]},
			"Mounts":[
				{"Type":"bind","Source":"/srv/www","Destination":"/usr/share/nginx/html"},
				{"Type":"volume","Name":"data","Source":"","Destination":"/data"}
			],
			"NetworkSettings":{
				"Ports":{"80/tcp":[{"HostIp":"0.0.0.0","HostPort":"8080"}],"443/tcp":null},
				"Networks":{"bridge":{"IPAddress":"172.17.0.2"},"backend":{"IPAddress":"10.0.0.5"},"none":{"IPAddress":""}}
			}
		}`)
	})

	details, err := NewContainerService(newConnectionForEngine(t, engine)).Inspect(context.Background(), "abc123")

	require.NoError(t, err)
	assert.Equal(t, "abc123", *details.ID)
	assert.Equal(t, "web", *details.Name)
	assert.Equal(t, "nginx:latest", *details.Image)
	assert.Equal(t, "2024-05-01T10:00:00Z", *details.Created)
	assert.Equal(t, domain.StateExited, *details.State)
	assert.Equal(t, "Exited (137)", *details.Status)
	assert.Equal(t, []string{"backend", "bridge", "none"}, details.Networks)
	assert.Equal(t, []string{"10.0.0.5", "172.17.0.2"}, details.IPAddresses)
	assert.Equal(t, []string{"/srv/www → /usr/share/nginx/html", "data → /data"}, details.Volumes)
	assert.Equal(t, []string{"80/tcp"}, details.Ports)
	assert.Equal(t, []string{"PATH=/usr/bin", "MODE=prod"}, details.Env)
	assert.Equal(t, "nginx -g daemon off;", details.Command)
}

func TestContainerService_Inspect_AllFieldsAbsent(t *testing.T) {
	engine := newFakeEngine()
	engine.handle("GET /v1.41/containers/empty/json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})

	details, err := NewContainerService(newConnectionForEngine(t, engine)).Inspect(context.Background(), "empty")

	require.NoError(t, err)
	assert.Equal(t, domain.ContainerDetails{}, details)
}

func TestContainerService_Inspect_MissingContainerIsNotFound(t *testing.T) {
	engine := newFakeEngine()
	engine.handle("GET /v1.41/containers/missing/json", func(w http.ResponseWriter, r *http.Request) {
		writeDaemonError(w, http.StatusNotFound, "No such container: missing")
	})

	_, err := NewContainerService(newConnectionForEngine(t, engine)).Inspect(context.Background(), "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrRuntime)
	assert.Contains(t, err.Error(), "missing")
}

func TestContainerService_Inspect_MountWithoutDestinationFails(t *testing.T) {
	engine := newFakeEngine()
	engine.handle("GET /v1.41/containers/abc/json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"Id":"abc","Mounts":[{"Type":"bind","Source":"/srv"}]}`)
	})

	_, err := NewContainerService(newConnectionForEngine(t, engine)).Inspect(context.Background(), "abc")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRuntime)
	assert.Contains(t, err.Error(), "no destination")
}

type createBody struct {
	Image        string
	ExposedPorts map[string]struct{}
	HostConfig   struct {
		PortBindings map[string][]struct {
			HostIP   string `json:"HostIp"`
			HostPort string
		}
	}
}

func TestContainerService_Create_PublishesPortAndStarts(t *testing.T) {
	var started atomic.Bool
	engine := newFakeEngine()
	engine.handle("POST /v1.41/containers/create", func(w http.ResponseWriter, r *http.Request) {
		var body createBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		assert.Equal(t, "nginx", body.Image)
		assert.Equal(t, map[string]struct{}{"80/tcp": {}}, body.ExposedPorts)
		require.Len(t, body.HostConfig.PortBindings, 1)
		bindings := body.HostConfig.PortBindings["80/tcp"]
		require.Len(t, bindings, 1)
		assert.Equal(t, "0.0.0.0", bindings[0].HostIP)
		assert.Equal(t, "8080", bindings[0].HostPort)

		writeJSON(w, http.StatusCreated, `{"Id":"new123","Warnings":[]}`)
	})
	engine.handle("POST /v1.41/containers/new123/start", func(w http.ResponseWriter, r *http.Request) {
		started.Store(true)
		w.WriteHeader(http.StatusNoContent)
	})

	id, err := NewContainerService(newConnectionForEngine(t, engine)).Create(context.Background(), "nginx", "8080:80")

	require.NoError(t, err)
	assert.Equal(t, "new123", id)
	assert.True(t, started.Load())
}

func TestContainerService_Create_WithoutMappingPublishesNothing(t *testing.T) {
	engine := newFakeEngine()
	engine.handle("POST /v1.41/containers/create", func(w http.ResponseWriter, r *http.Request) {
		var body createBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Empty(t, body.ExposedPorts)
		assert.Empty(t, body.HostConfig.PortBindings)
		writeJSON(w, http.StatusCreated, `{"Id":"new123"}`)
	})
	engine.handle("POST /v1.41/containers/new123/start", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	id, err := NewContainerService(newConnectionForEngine(t, engine)).Create(context.Background(), "nginx", "")

	require.NoError(t, err)
	assert.Equal(t, "new123", id)
}

func TestContainerService_Create_RejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name    string
		image   string
		mapping string
	}{
		{name: "bad mapping", image: "nginx", mapping: "bad-format"},
		{name: "zero port", image: "nginx", mapping: "0:80"},
		{name: "empty image", image: "", mapping: ""},
		{name: "invalid image", image: "Not A Ref", mapping: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newFakeEngine()
			svc := NewContainerService(newConnectionForEngine(t, engine))

			id, err := svc.Create(context.Background(), tt.image, tt.mapping)

			require.Error(t, err)
			assert.Empty(t, id)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Zero(t, engine.requests.Load(), "no runtime call expected")
		})
	}
}

func TestContainerService_Create_SurfacesStartFailureWithoutRollback(t *testing.T) {
	var deleted atomic.Bool
	engine := newFakeEngine()
	engine.handle("POST /v1.41/containers/create", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, `{"Id":"new123"}`)
	})
	engine.handle("POST /v1.41/containers/new123/start", func(w http.ResponseWriter, r *http.Request) {
		writeDaemonError(w, http.StatusInternalServerError, "driver failed programming external connectivity: port is already allocated")
	})
	engine.handle("DELETE /v1.41/containers/new123", func(w http.ResponseWriter, r *http.Request) {
		deleted.Store(true)
		w.WriteHeader(http.StatusNoContent)
	})

	id, err := NewContainerService(newConnectionForEngine(t, engine)).Create(context.Background(), "nginx", "8080:80")

	require.Error(t, err)
	assert.Equal(t, "new123", id)
	assert.ErrorIs(t, err, domain.ErrRuntime)
	assert.Contains(t, err.Error(), "port is already allocated")
	assert.False(t, deleted.Load())
}

func TestContainerService_Create_MissingImageIsNotFound(t *testing.T) {
	engine := newFakeEngine()
	engine.handle("POST /v1.41/containers/create", func(w http.ResponseWriter, r *http.Request) {
		writeDaemonError(w, http.StatusNotFound, "No such image: nginx:latest")
	})

	_, err := NewContainerService(newConnectionForEngine(t, engine)).Create(context.Background(), "nginx", "")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestContainerService_Lifecycle_ForwardsToRuntime(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		query   map[string]string
		call    func(*ContainerService, string) error
	}{
		{name: "start", pattern: "POST /v1.41/containers/abc/start", call: func(s *ContainerService, id string) error { return s.Start(context.Background(), id) }},
		{name: "stop", pattern: "POST /v1.41/containers/abc/stop", query: map[string]string{"t": "10"}, call: func(s *ContainerService, id string) error { return s.Stop(context.Background(), id) }},
		{name: "kill", pattern: "POST /v1.41/containers/abc/kill", query: map[string]string{"signal": "SIGKILL"}, call: func(s *ContainerService, id string) error { return s.Kill(context.Background(), id) }},
		{name: "remove", pattern: "DELETE /v1.41/containers/abc", call: func(s *ContainerService, id string) error { return s.Remove(context.Background(), id) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called atomic.Bool
			engine := newFakeEngine()
			engine.handle(tt.pattern, func(w http.ResponseWriter, r *http.Request) {
				called.Store(true)
				for k, v := range tt.query {
					assert.Equal(t, v, r.URL.Query().Get(k))
				}
				w.WriteHeader(http.StatusNoContent)
			})

			err := tt.call(NewContainerService(newConnectionForEngine(t, engine)), "abc")

			require.NoError(t, err)
			assert.True(t, called.Load())
		})
	}
}

func TestContainerService_Stop_HonorsConfiguredTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    string
	}{
		{name: "zero kills immediately", timeout: 0, want: "0"},
		{name: "configured seconds", timeout: 3 * time.Second, want: "3"},
		{name: "negative falls back to default", timeout: -1, want: "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			engine := newFakeEngine()
			engine.handle("POST /v1.41/containers/abc/stop", func(w http.ResponseWriter, r *http.Request) {
				got = r.URL.Query().Get("t")
				w.WriteHeader(http.StatusNoContent)
			})
			opts := DefaultOptions()
			opts.StopTimeout = tt.timeout

			err := NewContainerService(newConnectionWithOptions(t, engine, opts)).Stop(context.Background(), "abc")

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContainerService_Lifecycle_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		status  int
		message string
		want    error
		call    func(*ContainerService, string) error
	}{
		{name: "start missing", pattern: "POST /v1.41/containers/gone/start", status: http.StatusNotFound, message: "No such container: gone", want: domain.ErrNotFound,
			call: func(s *ContainerService, id string) error { return s.Start(context.Background(), id) }},
		{name: "stop missing", pattern: "POST /v1.41/containers/gone/stop", status: http.StatusNotFound, message: "No such container: gone", want: domain.ErrNotFound,
			call: func(s *ContainerService, id string) error { return s.Stop(context.Background(), id) }},
		{name: "kill not running", pattern: "POST /v1.41/containers/gone/kill", status: http.StatusConflict, message: "Container gone is not running", want: domain.ErrRuntime,
			call: func(s *ContainerService, id string) error { return s.Kill(context.Background(), id) }},
		{name: "remove running", pattern: "DELETE /v1.41/containers/gone", status: http.StatusConflict, message: "You cannot remove a running container gone", want: domain.ErrRuntime,
			call: func(s *ContainerService, id string) error { return s.Remove(context.Background(), id) }},
		{name: "remove forbidden", pattern: "DELETE /v1.41/containers/gone", status: http.StatusForbidden, message: "operation forbidden by policy", want: domain.ErrPermissionDenied,
			call: func(s *ContainerService, id string) error { return s.Remove(context.Background(), id) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newFakeEngine()
			engine.handle(tt.pattern, func(w http.ResponseWriter, r *http.Request) {
				writeDaemonError(w, tt.status, tt.message)
			})

			err := tt.call(NewContainerService(newConnectionForEngine(t, engine)), "gone")

			require.Error(t, err)
			assert.Equal(t, tt.want, domain.KindOf(err))
			assert.Contains(t, err.Error(), "gone")
		})
	}
}

func TestContainerService_Logs_DemultiplexesOutput(t *testing.T) {
	engine := newFakeEngine()
	engine.handle("GET /v1.41/containers/abc/json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"Id":"abc","Config":{"Tty":false}}`)
	})
	engine.handle("GET /v1.41/containers/abc/logs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("stdout"))
		assert.Equal(t, "1", r.URL.Query().Get("stderr"))
		assert.Equal(t, "50", r.URL.Query().Get("tail"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(append(frameDockerStream(1, []byte("hello\n")), frameDockerStream(2, []byte("warn\n"))...))
	})

	rc, err := NewContainerService(newConnectionForEngine(t, engine)).Logs(context.Background(), "abc", domain.LogsOptions{Tail: "50"})
	require.NoError(t, err)
	defer rc.Close()

	out, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello\nwarn\n", string(out))
}

func TestContainerService_Logs_MissingContainer(t *testing.T) {
	engine := newFakeEngine()
	engine.handle("GET /v1.41/containers/gone/json", func(w http.ResponseWriter, r *http.Request) {
		writeDaemonError(w, http.StatusNotFound, "No such container: gone")
	})

	_, err := NewContainerService(newConnectionForEngine(t, engine)).Logs(context.Background(), "gone", domain.LogsOptions{})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDemuxLogs_CloseReleasesBody(t *testing.T) {
	body := &trackingBody{Reader: bytes.NewReader(frameDockerStream(1, []byte("x")))}

	rc := demuxLogs(body)
	require.NoError(t, rc.Close())

	assert.True(t, body.closed)
}

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

func frameDockerStream(streamID byte, payload []byte) []byte {
	frame := make([]byte, 8+len(payload))
	frame[0] = streamID
	binary.BigEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[8:], payload)
	return frame
}
