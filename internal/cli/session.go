package cli

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/inspeksi/audit-dashboard/internal/audits"
	"github.com/inspeksi/audit-dashboard/internal/credential"
	"github.com/inspeksi/audit-dashboard/internal/dashboard"
	"github.com/inspeksi/audit-dashboard/internal/remote"
)

var errNotLoggedIn = errors.New("not logged in: run `auditctl login` first")

func (o *options) client(cmd *cobra.Command) *remote.Client {
	var source remote.ConfigSource = remote.StaticSource(o.baseURL)
	if o.baseURL == "" && o.configURL != "" {
		source = remote.NewHTTPSource(o.configURL)
	}
	return remote.NewClient(source, &http.Client{Timeout: o.timeout}, o.logger(cmd.ErrOrStderr()))
}

func (o *options) store() (*credential.FileStore, error) {
	path := o.credentials
	if path == "" {
		var err error
		if path, err = credential.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return credential.NewFileStore(path), nil
}

// signedIn returns the credential store when it holds a usable token. An
// expired JWT is removed so the next command asks for a login.
func (o *options) signedIn() (*credential.FileStore, error) {
	store, err := o.store()
	if err != nil {
		return nil, err
	}
	token, ok := store.Get()
	if !ok {
		return nil, errNotLoggedIn
	}
	if credential.Expired(token, time.Now()) {
		_ = store.Remove()
		return nil, fmt.Errorf("%s: %w", remote.MessageSessionExpired, errNotLoggedIn)
	}
	return store, nil
}

// controller wires an engine and controller for the signed-in user.
func (o *options) controller(cmd *cobra.Command, onChange func(dashboard.View)) (*dashboard.Controller, error) {
	store, err := o.signedIn()
	if err != nil {
		return nil, err
	}
	api := o.client(cmd).Session(store)
	return dashboard.NewController(dashboard.ControllerConfig{
		Engine:     audits.NewEngine(api, audits.Config{FetchSize: o.fetchSize}),
		Downloader: api,
		OnChange:   onChange,
		Location:   dashboard.LoadLocation(o.timezone),
		Logger:     o.logger(cmd.ErrOrStderr()),
	}), nil
}

// explain turns API errors into what a terminal user should do next.
func explain(err error) error {
	switch {
	case errors.Is(err, remote.ErrSessionExpired):
		return fmt.Errorf("%s: %w", remote.MessageSessionExpired, errNotLoggedIn)
	case errors.Is(err, remote.ErrConfig):
		return fmt.Errorf("%s %w", remote.MessageConfigUnavailable, err)
	default:
		return err
	}
}
