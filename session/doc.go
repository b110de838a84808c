// Package session drives the extraction target over a channel.
//
// A CommandSession sends one command at a time and reads its response,
// either a single line or, for echo commands, everything the target prints
// until the line goes quiet.
//
// An ExtractionSession runs a whole extraction: it configures the target,
// starts the readout, decodes the hex stream into the output Sink and lets a
// transfer.Monitor decide when the run is over:
//
//	cfg, err := session.NewConfig(session.WithStartAddress(0), session.WithLength(0x10000))
//	if err != nil {
//		return err
//	}
//
//	ch, err := channel.OpenSerial("/dev/ttyUSB0")
//	if err != nil {
//		return err
//	}
//
//	sink, err := session.OpenFileSink("dump.bin")
//	if err != nil {
//		return err
//	}
//
//	s, err := session.NewExtractionSession(ch, cfg, sink)
//	if err != nil {
//		return err
//	}
//
//	res, err := s.Run(ctx) // closes ch and sink
package session
