package fs

// Drive is a mounted volume offered as a favorites root.
type Drive struct {
	Name string
	Path string
}

// virtualFS lists filesystem types that never hold user files.
var virtualFS = map[string]bool{
	"proc": true, "sysfs": true, "tmpfs": true, "devtmpfs": true, "devpts": true,
	"cgroup": true, "cgroup2": true, "securityfs": true, "debugfs": true,
	"tracefs": true, "pstore": true, "bpf": true, "mqueue": true, "hugetlbfs": true,
	"overlay": true, "squashfs": true, "autofs": true, "fusectl": true,
	"configfs": true, "binfmt_misc": true, "nsfs": true,
}
