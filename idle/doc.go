// Package idle implements the idle detector (C6): an out-of-band
// observer of queue depth that fires a host shutdown after a sustained
// idle window.
//
// It samples queue.Queue.Depth every T_sample and fires only when the
// last N consecutive samples are all at or below the threshold. Because
// in-flight (leased) messages are invisible to Depth, the detector is
// automatically race-safe against active work: it never fires while a
// job is being processed.
//
// Every sample is recorded on an OpenTelemetry gauge
// (coldrun.idle.queue_depth). When the detector fires, it notifies any
// registered ext.Registry via OnIdleFired and OnHostStopped.
package idle
