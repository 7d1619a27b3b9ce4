package azdevops

// Project is a team project reference as returned by the projects API.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type projectList struct {
	Count    int       `json:"count"`
	Projects []Project `json:"value"`
}

// RegisteredGroup is a directory group after registration with the DevOps
// identity graph. The descriptor is the opaque identifier required for ACL
// writes.
type RegisteredGroup struct {
	Descriptor  string `json:"descriptor"`
	DisplayName string `json:"displayName"`
	Origin      string `json:"origin"`
	OriginID    string `json:"originId"`
}

// SecurityNamespace is a named category of securable resource whose
// permission bits are defined by the platform.
type SecurityNamespace struct {
	NamespaceID string `json:"namespaceId"`
	Name        string `json:"name"`
}

type namespaceList struct {
	Count      int                 `json:"count"`
	Namespaces []SecurityNamespace `json:"value"`
}

type accessControlEntry struct {
	Descriptor string `json:"descriptor"`
	Allow      int    `json:"allow"`
	Deny       int    `json:"deny"`
}

type setAccessControlEntriesRequest struct {
	Token                string               `json:"token"`
	Merge                bool                 `json:"merge"`
	AccessControlEntries []accessControlEntry `json:"accessControlEntries"`
}
