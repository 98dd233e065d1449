// Package launchconfig reads and persists the server launch parameters.
//
// The parameters are a flat key=value file in Java-properties syntax. The launcher
// understands xmx and xms (heap sizes in megabytes); every other key is kept as-is so a
// hand-edited file survives a save. When no file exists the defaults are written out.
package launchconfig
