package main

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"log"
	"net"
	"strings"
)

// envelope collects what one SMTP transaction told us
type envelope struct {
	helo       string
	authUser   string
	from       string
	rcpts      []string
	subject    string
	attachment string
	dataSize   int
}

func handleSession(conn net.Conn) {
	defer conn.Close()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	reply := func(line string) {
		fmt.Fprintf(w, "%s\r\n", line)
		w.Flush()
	}

	reply("220 localhost test SMTP sink ready")

	env := &envelope{}

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		verb := strings.ToUpper(line)

		switch {
		case strings.HasPrefix(verb, "EHLO"), strings.HasPrefix(verb, "HELO"):
			env.helo = strings.TrimSpace(line[4:])
			reply("250-localhost greets you")
			reply("250-SIZE 26214400")
			reply("250 AUTH PLAIN")

		case verb == "AUTH PLAIN":
			reply("334 ")
			payload, err := r.ReadString('\n')
			if err != nil {
				return
			}
			env.authUser = decodePlainPayload(strings.TrimSpace(payload))
			reply("235 2.7.0 Authentication successful")

		case strings.HasPrefix(verb, "AUTH PLAIN "):
			env.authUser = decodePlainPayload(line[len("AUTH PLAIN "):])
			reply("235 2.7.0 Authentication successful")

		case strings.HasPrefix(verb, "MAIL FROM:"):
			env.from = address(line)
			reply("250 2.1.0 Sender ok")

		case strings.HasPrefix(verb, "RCPT TO:"):
			env.rcpts = append(env.rcpts, address(line))
			reply("250 2.1.5 Recipient ok")

		case verb == "DATA":
			if env.from == "" || len(env.rcpts) == 0 {
				reply("503 5.5.1 MAIL and RCPT first")
				continue
			}
			reply("354 End data with <CR><LF>.<CR><LF>")
			if err := readData(r, env); err != nil {
				return
			}
			logEnvelope(env)
			reply("250 2.0.0 Message accepted (and discarded)")
			env = &envelope{helo: env.helo, authUser: env.authUser}

		case verb == "RSET":
			env = &envelope{helo: env.helo, authUser: env.authUser}
			reply("250 2.0.0 Reset")

		case verb == "NOOP":
			reply("250 2.0.0 OK")

		case verb == "STARTTLS":
			reply("454 4.7.0 TLS not available on the sink")

		case verb == "QUIT":
			reply("221 2.0.0 Bye")
			return

		default:
			reply("502 5.5.2 Command not implemented")
		}
	}
}

// readData consumes the message body up to the terminating dot, noting
// the subject, attachment filename and total size along the way.
func readData(r *bufio.Reader, env *envelope) error {
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return err
		}

		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "." {
			return nil
		}

		env.dataSize += len(line)

		if env.subject == "" && strings.HasPrefix(trimmed, "Subject:") {
			env.subject = strings.TrimSpace(trimmed[len("Subject:"):])
		}
		if env.attachment == "" {
			if idx := strings.Index(trimmed, `filename="`); idx >= 0 {
				rest := trimmed[idx+len(`filename="`):]
				if end := strings.Index(rest, `"`); end >= 0 {
					env.attachment = rest[:end]
				}
			}
		}
	}
}

func logEnvelope(env *envelope) {
	log.Printf("📧 MESSAGE RECEIVED:")
	log.Printf("  ═══════════════════════════════════")
	log.Printf("  👤 Envelope:")
	log.Printf("    Client: %s", env.helo)
	log.Printf("    Auth User: %s", env.authUser)
	log.Printf("    From: %s", env.from)
	log.Printf("    To: %s", strings.Join(env.rcpts, ", "))
	log.Printf("  ═══════════════════════════════════")
	log.Printf("  ✉️  Content:")
	log.Printf("    Subject: %s", env.subject)
	log.Printf("    Attachment: %s", env.attachment)
	log.Printf("    Size: %d bytes", env.dataSize)
	log.Println("---")
}

// address extracts the path from a MAIL FROM or RCPT TO argument
func address(line string) string {
	start := strings.Index(line, "<")
	end := strings.LastIndex(line, ">")
	if start >= 0 && end > start {
		return line[start+1 : end]
	}
	if colon := strings.Index(line, ":"); colon >= 0 {
		return strings.TrimSpace(line[colon+1:])
	}
	return ""
}

// decodePlainPayload pulls the username out of an AUTH PLAIN payload
func decodePlainPayload(payload string) string {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return ""
	}
	fields := strings.Split(string(raw), "\x00")
	if len(fields) >= 2 {
		return fields[1]
	}
	return ""
}

func main() {
	addr := ":2525"
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal("Sink failed to start:", err)
	}

	log.Printf("🚀 Test SMTP Sink listening on %s", addr)
	log.Printf("📮 Point any SMTP client at localhost%s to inspect what it sends", addr)
	log.Println("💡 Messages are logged and discarded, never relayed")

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Printf("Accept error: %v", err)
			continue
		}
		go handleSession(conn)
	}
}
