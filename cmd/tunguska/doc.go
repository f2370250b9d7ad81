// Command tunguska prepares per-event seismic waveform datasets.
//
// Subcommands:
//
//	tunguska prepare EVENT...   build kiwi/rapid datasets for the named events
//	tunguska stations EVENT     list the stations of an event with geometry
//	tunguska badness TIME       show which badness file covers a time
//	tunguska runs [RUN_ID]      list recorded runs or the events of one run
//	tunguska check              run filesystem preflight checks
//	tunguska logs               show or follow tunguska.log
//	tunguska config init        write a sample configuration
//	tunguska config validate    load and validate the configuration
package main
