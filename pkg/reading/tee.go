package reading

import "log"

// Tee copies every reading from in to n outputs. A full output misses the
// reading instead of holding back the others. All outputs close when in does.
func Tee(in <-chan Reading, n, bufSize int) []<-chan Reading {
	if bufSize <= 0 {
		bufSize = 100
	}

	outs := make([]chan Reading, n)
	ro := make([]<-chan Reading, n)
	for i := range outs {
		outs[i] = make(chan Reading, bufSize)
		ro[i] = outs[i]
	}

	go func() {
		defer func() {
			for _, out := range outs {
				close(out)
			}
		}()

		for r := range in {
			for i, out := range outs {
				select {
				case out <- r:
				default:
					log.Printf("reading: tee output %d full, dropping reading", i)
				}
			}
		}
	}()

	return ro
}
