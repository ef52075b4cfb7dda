// mavcat is a diagnostic tool for the tunnel link. It sends each line of
// stdin as a tagged payload and prints every payload received from the
// peer. With -list it just enumerates the serial ports on the system.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"syscall"

	"github.com/oklog/run"

	"github.com/mavconn/mavconn/link"
)

func main() {
	list := flag.Bool("list", false, "list serial ports and exit")
	port := flag.String("port", "/dev/ttyUSB0", "serial device path")
	baud := flag.Int("baud", link.DefaultBaud, "baud rate")
	sysID := flag.Uint("sys", 1, "source system id")
	compID := flag.Uint("comp", 1, "source component id")
	tid := flag.Uint("tid", 0, "tag for outbound payloads")
	flag.Parse()

	if *list {
		ports, err := link.ListPorts()
		if err != nil {
			log.Fatal("Unable to list serial ports: ", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	l := &link.Link{}
	err := l.Init(func(tid uint8, payload []byte) {
		fmt.Printf("[%d] %s\n", tid, payload)
	}, *port, *baud, uint8(*sysID), uint8(*compID))
	if err != nil {
		log.Fatal(err)
	}
	defer l.Close()

	var g run.Group
	g.Add(run.SignalHandler(context.Background(), syscall.SIGINT, syscall.SIGTERM))
	g.Add(func() error {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			l.Send(uint8(*tid), sc.Bytes())
		}
		return sc.Err()
	}, func(error) {
		os.Stdin.Close()
	})

	if err := g.Run(); err != nil {
		log.Println("Exiting: ", err)
	}
}
