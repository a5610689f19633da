// Copyright 2025 Calyptra Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package jira

import (
	"crypto/tls"
	"log/slog"
	"net/http"
	"net/url"
	"os"
)

// proxyEnvVars in lookup order. The first non-empty value wins.
var proxyEnvVars = []string{"HTTPS_PROXY", "https_proxy", "HTTP_PROXY", "http_proxy"}

// newTransport builds the HTTP transport for the client. Proxy settings are
// read from the usual environment variables, including the
// user:pass@host:port credential form. Corporate Jira instances frequently
// sit behind self-signed certificates, so insecure TLS can be switched on
// explicitly.
func newTransport(insecureTLS bool, logger *slog.Logger) *http.Transport {
	transport := &http.Transport{
		Proxy: proxyFromEnvironment(logger),
	}
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		logger.Warn("tls certificate verification disabled for jira transport")
	}
	return transport
}

func proxyFromEnvironment(logger *slog.Logger) func(*http.Request) (*url.URL, error) {
	for _, name := range proxyEnvVars {
		raw := os.Getenv(name)
		if raw == "" {
			continue
		}
		proxyURL, err := url.Parse(raw)
		if err != nil || proxyURL.Hostname() == "" {
			logger.Warn("ignoring unparseable proxy setting", "var", name)
			continue
		}
		logger.Info("using proxy for jira requests", "var", name, "host", proxyURL.Hostname(), "port", proxyURL.Port())
		return http.ProxyURL(proxyURL)
	}
	return nil
}
