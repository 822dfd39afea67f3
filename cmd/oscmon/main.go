// oscmon prints OSC traffic arriving on a UDP port. Useful for watching
// scsynth replies and meter streams while debugging.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"

	"github.com/chabad360/go-osc/osc"
)

func main() {
	var port int
	flag.IntVar(&port, "p", 57120, "UDP port to listen on")
	flag.Parse()

	laddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		log.Fatal(err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()
	log.Printf("listening on %v", laddr)

	buf := make([]byte, 8192)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			log.Fatal(err)
		}
		dump(buf[:n], addr)
	}
}

func dump(data []byte, addr *net.UDPAddr) {
	if len(data) == 0 {
		return
	}
	if data[0] == '#' {
		bundle, err := osc.NewBundleFromData(data)
		if err != nil {
			log.Printf("%v: malformed bundle: %v", addr, err)
			return
		}
		log.Printf("%v: bundle tt=%d (%d elements)", addr, bundle.Timetag.TimeTag(), len(bundle.Elements))
		for _, el := range bundle.Elements {
			if msg, ok := el.(*osc.Message); ok {
				log.Printf("  %s %v", msg.Address, msg.Arguments)
			}
		}
		return
	}
	msg, err := osc.NewMessageFromData(data)
	if err != nil {
		log.Printf("%v: malformed message: %v", addr, err)
		return
	}
	log.Printf("%v: %s %v", addr, msg.Address, msg.Arguments)
}
