// Package timing turns phase definitions and timing expressions into
// travel-time functions of source-receiver distance and source depth.
//
// A phase is either a constant apparent velocity (optionally limited to a
// distance range) or a tabulated distance/time curve. Expressions reference
// phases by name with an optional offset in seconds:
//
//	P-10        10 s before the P arrival
//	first(P|Pn) earliest of the listed phases that exists
//	last(S|Sn)+60
//	120         fixed offset from origin time
//
// A function that cannot produce a value reports ok=false, meaning the phase
// does not exist at that geometry.
package timing
