// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

/*
Package xviper provides customizations on use of viper for configuration
loading: standard config search paths, binding a config file or name from
flags, and the CastConfig shape cmd/castv2ctl unmarshals into.
*/
package xviper
