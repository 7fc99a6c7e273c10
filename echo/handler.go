package echo

import (
	"io"
	"log"
	"net"
	"sync"
	"time"
)

const readBufferSize = 1024

var bufferPool = sync.Pool{
	New: func() interface{} {
		buffer := make([]byte, readBufferSize)
		return &buffer
	},
}

// handleConnection echoes the connection back to itself: every chunk read
// is written back in full before the next read is issued, so bytes are
// never reordered and nothing is buffered across reads. A zero-length
// read (peer closed) ends the loop; any read or write error ends the loop
// and releases only this connection.
func (s *Server) handleConnection(conn net.Conn) {
	defer func() {
		conn.Close()
		s.wg.Done()
	}()

	log.Printf("Handling connection from %s", conn.RemoteAddr())
	s.metrics.current_active_connections.Inc()
	defer s.metrics.current_active_connections.Dec()
	s.metrics.total_connections_handled.Inc()

	startTime := time.Now()
	defer func() {
		duration := time.Since(startTime)
		s.metrics.connection_duration_seconds.Observe(duration.Seconds())
	}()

	bufferPtr := bufferPool.Get().(*[]byte)
	defer bufferPool.Put(bufferPtr)
	buffer := *bufferPtr

	for {
		numBytes, err := conn.Read(buffer)
		if numBytes > 0 {
			if werr := writeFull(conn, buffer[:numBytes]); werr != nil {
				s.metrics.total_connection_failures.WithLabelValues("write_error").Inc()
				log.Printf("Write error to %s: %v", conn.RemoteAddr(), werr)
				return
			}
			s.metrics.bytes_echoed.Add(float64(numBytes))
		}
		if err != nil {
			if err != io.EOF {
				s.metrics.total_connection_failures.WithLabelValues("read_error").Inc()
				log.Printf("Read error from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}
	}
}

// writeFull loops until every byte of chunk has been written.
func writeFull(w io.Writer, chunk []byte) error {
	for len(chunk) > 0 {
		numBytes, err := w.Write(chunk)
		if err != nil {
			return err
		}
		chunk = chunk[numBytes:]
	}
	return nil
}
