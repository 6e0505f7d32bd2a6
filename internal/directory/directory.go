package directory

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// User is one intranet directory entry.
type User struct {
	ID     int    `json:"user_id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Directory is an immutable lookup table built from the XML export.
type Directory struct {
	users map[int]User
}

// xmlIntranet mirrors the export:
//
//	<intranet>
//	  <server><host/><port/><protocol/></server>
//	  <users><user id="N"><avatar/><name/></user></users>
//	</intranet>
type xmlIntranet struct {
	XMLName xml.Name `xml:"intranet"`
	Server  struct {
		Host     string `xml:"host"`
		Port     string `xml:"port"`
		Protocol string `xml:"protocol"`
	} `xml:"server"`
	Users []struct {
		ID     int    `xml:"id,attr"`
		Avatar string `xml:"avatar"`
		Name   string `xml:"name"`
	} `xml:"users>user"`
}

// Parse decodes a directory export.
func Parse(r io.Reader) (*Directory, error) {
	var doc xmlIntranet
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("directory: decode: %w", err)
	}

	base := serverBase(doc.Server.Protocol, doc.Server.Host, doc.Server.Port)
	d := &Directory{users: make(map[int]User, len(doc.Users))}
	for _, u := range doc.Users {
		avatar := strings.TrimSpace(u.Avatar)
		if avatar != "" && base != "" && strings.HasPrefix(avatar, "/") {
			avatar = base + avatar
		}
		d.users[u.ID] = User{
			ID:     u.ID,
			Name:   strings.TrimSpace(u.Name),
			Avatar: avatar,
		}
	}
	return d, nil
}

// ParseFile opens path and parses it with Parse.
func ParseFile(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("directory: open: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func serverBase(protocol, host, port string) string {
	protocol = strings.TrimSpace(protocol)
	host = strings.TrimSpace(host)
	port = strings.TrimSpace(port)
	if host == "" {
		return ""
	}
	if protocol == "" {
		protocol = "https"
	}
	if port == "" {
		return protocol + "://" + host
	}
	return protocol + "://" + host + ":" + port
}

// Lookup returns the entry for id.
func (d *Directory) Lookup(id int) (User, bool) {
	if d == nil {
		return User{}, false
	}
	u, ok := d.users[id]
	return u, ok
}

// Len returns the number of entries.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.users)
}

// SortByName orders users by name using the collation rules of tag, with
// digit runs compared numerically and the user id as a tie breaker.
func SortByName(users []User, tag language.Tag) {
	// A Collator is not safe for concurrent use; build one per call.
	c := collate.New(tag, collate.IgnoreCase, collate.Numeric)
	slices.SortStableFunc(users, func(a, b User) int {
		if n := c.CompareString(a.Name, b.Name); n != 0 {
			return n
		}
		return a.ID - b.ID
	})
}

// ParseLocale parses a BCP 47 tag such as "pl" or "en-GB", falling back to
// Polish on an empty or invalid value.
func ParseLocale(s string) (language.Tag, error) {
	if strings.TrimSpace(s) == "" {
		return language.Polish, nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.Polish, errors.Join(fmt.Errorf("directory: invalid locale %q", s), err)
	}
	return tag, nil
}
