// Pixelfetch - Image Resource Cache and Preload Engine
// Copyright 2026 Pixelfetch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pixelfetch/pixelfetch

/*
Package config provides layered configuration loading for the engine.

Configuration is assembled from three sources with strict precedence:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file (config.yaml, or PIXELFETCH_CONFIG_PATH)
 3. PIXELFETCH_-prefixed environment variables
    (PIXELFETCH_HTTP_PORT, PIXELFETCH_CACHE_DEFAULT_TTL, ...)

Every recognized field is enumerated on an explicit struct; unrecognized
environment variables are discarded by the env transform rather than
silently accepted. The loaded Config is validated before use, so a
misconfigured process fails at startup instead of at first request.
*/
package config
