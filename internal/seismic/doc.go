// Package seismic holds the value types shared by every stage of event
// preparation: events, stations, waveform traces, and the NSL/NSLC keys that
// tie traces to the stations that recorded them.
//
// Times are epoch seconds (float64) and distances are meters. Stations and
// events are produced by an accessor and treated as read-only afterwards;
// traces are owned by whichever stage currently holds them.
package seismic
