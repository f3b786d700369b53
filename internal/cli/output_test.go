package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naveenspark/hogwarts/internal/validate"
	"github.com/naveenspark/hogwarts/pkg/client"
)

func TestEmitText(t *testing.T) {
	var out bytes.Buffer
	o := newOutput("text", &out, nil)
	err := o.emit(map[string]int{"n": 1}, func(w textWriter) { w.printf("n=%d\n", 1) })
	require.NoError(t, err)
	assert.Equal(t, "n=1\n", out.String())
}

func TestEmitJSON(t *testing.T) {
	var out bytes.Buffer
	o := newOutput("json", &out, nil)
	err := o.emit(map[string]int{"n": 1}, func(w textWriter) { t.Fatal("text renderer called in json mode") })
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"n":1}}`, out.String())
}

func TestFailureText(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain", errors.New("boom"), "error: boom\n"},
		{"http", fmt.Errorf("client.GetBook: %w", &client.HTTPError{StatusCode: 404, Message: "Book not found"}), "error: Book not found\n"},
		{"network", &client.NetworkError{Err: errors.New("dial tcp: refused")}, "error: network error. please check your connection\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			newOutput("text", &out, &errOut).failure(tt.err)
			assert.Empty(t, out.String())
			assert.Equal(t, tt.want, errOut.String())
		})
	}
}

func TestFailureTextListsFieldErrors(t *testing.T) {
	err := validate.Login("not-an-email", "")
	require.Error(t, err)

	var errOut bytes.Buffer
	newOutput("text", &bytes.Buffer{}, &errOut).failure(err)
	assert.Contains(t, errOut.String(), "error: email: ")
	assert.Contains(t, errOut.String(), "error: password: ")
}

func TestFailureJSON(t *testing.T) {
	var out bytes.Buffer
	newOutput("json", &out, &bytes.Buffer{}).failure(&client.HTTPError{StatusCode: 401, Message: "Invalid email or password"})

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Message string `json:"message"`
			Status  int    `json:"status"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "Invalid email or password", resp.Error.Message)
	assert.Equal(t, 401, resp.Error.Status)
}

func TestFailureJSONCarriesFields(t *testing.T) {
	var out bytes.Buffer
	newOutput("json", &out, nil).failure(validate.Login("", "secret123"))

	var resp response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	require.Len(t, resp.Error.Fields, 1)
	assert.Equal(t, "email", resp.Error.Fields[0].Field)
}
